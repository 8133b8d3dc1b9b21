// Package fetchbridge dispatches HTTP requests over two transports: a
// buffered path backed by a pluggable Host primitive, and a raw socket
// path that resolves as soon as response headers arrive and streams the
// body lazily.
//
// A request takes the socket path when it asks to stream, either through
// its Stream field or a JSON body whose top-level "stream" field is
// true. If the socket path fails before headers resolve, the buffered
// path serves the request instead and the response is indistinguishable
// from a buffered-only round trip. Canceled requests are never retried.
// Any HTTP status code is a response, not an error.
//
// # Basic Usage
//
//	client, err := fetchbridge.New(fetchbridge.Config{
//	    Timeout: 30 * time.Second,
//	    Auth:    fetchbridge.BearerAuth("my-token"),
//	})
//	if err != nil {
//	    return err
//	}
//
//	resp, err := client.Do(ctx, &fetchbridge.Request{
//	    URL: "https://api.example.com/v1/items",
//	})
//	if err != nil {
//	    return err
//	}
//	text, err := resp.Text()
//
// # Streaming
//
//	resp, err := client.Do(ctx, &fetchbridge.Request{
//	    URL:    "https://api.example.com/v1/chat",
//	    Method: http.MethodPost,
//	    Body:   `{"model":"m","stream":true}`,
//	})
//	if err != nil {
//	    return err
//	}
//	if resp.Streaming() {
//	    defer resp.Close()
//	    scanner := bufio.NewScanner(resp.Reader())
//	    for scanner.Scan() {
//	        handle(scanner.Text())
//	    }
//	}
//
// Mid-stream failures surface from the body reader, never from Do: a
// truncated or broken stream ends with a stream error instead of EOF.
package fetchbridge
