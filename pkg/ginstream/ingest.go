package ginstream

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deepankarm/streamjson/pkg/pipeline"
	"github.com/deepankarm/streamjson/pkg/streamjson"
)

type ingestQuery struct {
	Session string `form:"session" binding:"omitempty,max=64,printascii"`
}

// IngestResponse is the body IngestHandler replies with once the request
// stream has ended.
type IngestResponse struct {
	Session     string         `json:"session"`
	Stats       pipeline.Stats `json:"stats"`
	Trailing    string         `json:"trailing,omitempty"`
	TruncatedAt string         `json:"truncated_at,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// IngestHandler runs the request body through a new pipeline.Session that
// delivers to b. The optional "session" query parameter names the session.
func (b *Broker) IngestHandler(cfg pipeline.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q ingestQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid query",
				"details": err.Error(),
			})
			return
		}

		var trailing *streamjson.Trailing
		opts := []pipeline.SessionOption{
			pipeline.WithTrailingHandler(func(t *streamjson.Trailing) {
				trailing = t
			}),
		}
		if q.Session != "" {
			opts = append(opts, pipeline.WithSessionID(q.Session))
		}

		s, err := pipeline.NewSession(cfg, b.Deliver, opts...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		err = s.Run(c.Request.Context(), c.Request.Body)
		resp := IngestResponse{Session: s.ID(), Stats: s.Stats()}
		if trailing != nil {
			resp.Trailing = trailing.Text
			resp.TruncatedAt = trailing.TruncatedAt
		}
		if err != nil {
			b.logger.Error("ginstream: ingest failed", "session", s.ID(), "error", err)
			resp.Error = err.Error()
			c.JSON(ingestStatus(err), resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func ingestStatus(err error) int {
	switch {
	case stderrors.Is(err, pipeline.ErrBufferLimit):
		return http.StatusRequestEntityTooLarge
	case stderrors.Is(err, ErrBrokerClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
