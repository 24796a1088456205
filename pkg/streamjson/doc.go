// Package streamjson decodes JSON values out of an unframed text stream,
// such as the standard output of a child process that writes one JSON
// object after another with no reliable delimiter between them.
//
// Two framings are supported. The brace framing ([Decoder]) finds object
// boundaries by counting braces outside string literals, so neither chunk
// boundaries nor newlines inside values matter.
// The line framing ([LineDecoder]) expects exactly one JSON value per
// newline-terminated line and is simpler when the producer guarantees it.
//
//	dec := streamjson.NewDecoder()
//	for chunk := range chunks {
//	    for _, v := range dec.Parse(chunk) {
//	        handle(v.Value, v.Raw)
//	    }
//	}
//	if rest, ok := dec.Flush(); ok {
//	    log.Printf("stream ended mid-object: %s", rest)
//	}
//
// Decoders are not safe for concurrent use. Pair one decoder with one stream.
package streamjson
