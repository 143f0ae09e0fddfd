package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"medication-alerts/internal/models"
)

// ElasticsearchSink indexes each dose event as a document keyed by event ID.
type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchSink(client *elasticsearch.Client, index string) *ElasticsearchSink {
	return &ElasticsearchSink{client: client, index: index}
}

func (s *ElasticsearchSink) Name() string { return "elasticsearch" }

func (s *ElasticsearchSink) Write(ctx context.Context, event models.DoseEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal dose event: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: event.ID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index dose event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index dose event: %s", res.String())
	}
	return nil
}
