// Package ginstream exposes debounced events over HTTP with Gin.
//
// A Broker is a debounce.Sink that fans events out to Server-Sent Events
// subscribers. IngestHandler accepts a producer stream as a request body
// and runs it through a pipeline.Session into the broker. SchemaHandler
// serves the JSON Schema of a Go type so clients can discover the payloads.
//
//	broker := ginstream.NewBroker()
//	router.GET("/events", broker.Handler())
//	router.POST("/ingest", broker.IngestHandler(pipeline.DefaultConfig()))
//	router.GET("/schema/event", ginstream.SchemaHandler[debounce.Event]())
package ginstream
