package sender

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"jvmScope/logs"

	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/collector/pdata/plog/plogotlp"
	"go.opentelemetry.io/otel/attribute"
)

const logsPath = "/v1/logs"

type Config struct {
	Endpoint    string
	AuthToken   string
	ServiceName string
	Version     string
	Tags        map[string]string
}

// Sender posts batches of log entries to an OTLP/HTTP endpoint. Failed
// requests are reported to the caller and not retried.
type Sender struct {
	config   Config
	url      string
	resource []attribute.KeyValue
	client   *http.Client
}

func New(config Config) *Sender {
	return &Sender{
		config:   config,
		url:      strings.TrimSuffix(config.Endpoint, "/") + logsPath,
		resource: resourceAttributes(config),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// resourceAttributes puts service.name first, followed by the tags in
// key order.
func resourceAttributes(config Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("service.name", config.ServiceName)}
	keys := make([]string, 0, len(config.Tags))
	for k := range config.Tags {
		if k != "service.name" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, attribute.String(k, config.Tags[k]))
	}
	return attrs
}

// Send encodes entries as one OTLP export request and posts it. An empty
// batch is not sent.
func (s *Sender) Send(entries []logs.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ld := logs.ToLogs(s.resource, logs.Scope{Name: "jvmScope", Version: s.config.Version}, entries)
	payload, err := plogotlp.NewExportRequestFromLogs(ld).MarshalProto()
	if err != nil {
		return fmt.Errorf("marshalling logs: %w", err)
	}

	var body bytes.Buffer
	gzipWriter := gzip.NewWriter(&body)
	if _, err := gzipWriter.Write(payload); err != nil {
		return fmt.Errorf("compressing logs: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("compressing logs: %w", err)
	}

	compressed := body.Len()

	// Create request
	req, err := http.NewRequest(http.MethodPost, s.url, &body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	// Set headers
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("Content-Encoding", "gzip")
	if s.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.AuthToken)
	}

	// Send request
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	// Handle response
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, string(respBody))
	}
	log.WithFields(log.Fields{
		"records": len(entries),
		"bytes":   compressed,
	}).Debug("Logs sent successfully")

	return nil
}
