package clients

import (
	"bytes"

	"github.com/bionicotaku/lingo-services-uploads/internal/services"
)

// countingReader 将已读取的字节数报告给 services.ProgressFunc。
type countingReader struct {
	r        *bytes.Reader
	total    int64
	sent     int64
	progress services.ProgressFunc
}

func newCountingReader(data []byte, progress services.ProgressFunc) *countingReader {
	return &countingReader{r: bytes.NewReader(data), total: int64(len(data)), progress: progress}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.sent += int64(n)
		if c.progress != nil {
			c.progress(c.sent, c.total)
		}
	}
	return n, err
}
