package handlers

import (
	"fmt"
	"io"
	"os"
	"path"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/mattn/go-isatty"
)

// Color constants for terminal output
const (
	cRed     = "\u001b[91m"
	cGreen   = "\u001b[92m"
	cYellow  = "\u001b[93m"
	cBlue    = "\u001b[94m"
	cMagenta = "\u001b[95m"
	cCyan    = "\u001b[96m"
	cReset   = "\u001b[0m"
)

// sampleEvery is how many requests to a polled endpoint produce one log line.
const sampleEvery = 10

func getStatusColor(status int, enableColors bool) string {
	if !enableColors {
		return ""
	}

	switch {
	case status >= 200 && status < 300:
		return cGreen
	case status >= 300 && status < 400:
		return cBlue
	case status >= 400 && status < 500:
		return cYellow
	default:
		return cRed
	}
}

func getMethodColor(method string, enableColors bool) string {
	if !enableColors {
		return ""
	}

	switch method {
	case fiber.MethodGet:
		return cCyan
	case fiber.MethodPost:
		return cGreen
	case fiber.MethodDelete:
		return cRed
	case fiber.MethodPatch:
		return cMagenta
	default:
		return cReset
	}
}

// SamplingLogger logs every request except those whose path matches one of
// sampledPatterns (path.Match syntax), which are logged once per sampleEvery
// calls. Used for polled endpoints and keystroke traffic.
func SamplingLogger(out io.Writer, sampledPatterns ...string) fiber.Handler {
	if out == nil {
		out = os.Stdout
	}

	enableColors := false
	if f, ok := out.(*os.File); ok {
		enableColors = isatty.IsTerminal(f.Fd()) && os.Getenv("NO_COLOR") != "1" && os.Getenv("TERM") != "dumb"
	}

	var counterMu sync.Mutex
	counters := make(map[string]uint64)

	defaultLogger := logger.New(logger.Config{
		Format:        "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
		Output:        out,
		DisableColors: !enableColors,
	})

	return func(c *fiber.Ctx) error {
		key := matchPattern(sampledPatterns, c.Path())
		if key == "" {
			return defaultLogger(c)
		}

		counterMu.Lock()
		counters[key]++
		currentCount := counters[key]
		if currentCount >= sampleEvery {
			counters[key] = 0
		}
		counterMu.Unlock()

		if currentCount < sampleEvery {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		status := c.Response().StatusCode()
		method := c.Method()
		resetColor := ""
		if enableColors {
			resetColor = cReset
		}

		fmt.Fprintf(out, "%s | %s%d%s | %13s | %s | %s%s%s | %s | - [sampled: %d calls]\n",
			time.Now().Format("15:04:05"),
			getStatusColor(status, enableColors),
			status,
			resetColor,
			duration,
			c.IP(),
			getMethodColor(method, enableColors),
			method,
			resetColor,
			c.Path(),
			currentCount)

		return err
	}
}

func matchPattern(patterns []string, p string) string {
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, p); ok {
			return pattern
		}
	}
	return ""
}
