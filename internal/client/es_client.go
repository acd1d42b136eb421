package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"checkin-service/internal/config"
	"checkin-service/internal/model"
	"checkin-service/internal/util"
)

// VehicleIndex wraps the Elasticsearch client serving license-plate lookups.
type VehicleIndex struct {
	client *elasticsearch.Client
	index  string
	logger *zap.Logger
}

func NewVehicleIndex(cfg *config.Config, logger *zap.Logger) (*VehicleIndex, error) {
	esConfig := cfg.Elastic

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.IsDevelopment(), // skip verify in dev only
		},
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esConfig.URL},
		Username:  esConfig.Username,
		Password:  esConfig.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	util.Info("Vehicle index client initialized",
		zap.String("url", esConfig.URL),
		zap.String("index", esConfig.VehicleIndex))

	return &VehicleIndex{
		client: es,
		index:  esConfig.VehicleIndex,
		logger: logger,
	}, nil
}

// FindByPlate looks a vehicle up by normalized license plate and state code.
// Returns nil with no error when nothing matches.
func (v *VehicleIndex) FindByPlate(ctx context.Context, plate, stateCode string) (*model.Vehicle, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{"term": map[string]interface{}{"licensePlate": plate}},
					{"term": map[string]interface{}{"stateCode": stateCode}},
				},
			},
		},
		"size": 1,
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to build vehicle query: %w", err)
	}

	res, err := v.client.Search(
		v.client.Search.WithContext(ctx),
		v.client.Search.WithIndex(v.index),
		v.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("vehicle search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("vehicle search returned status %s", res.Status())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source model.Vehicle `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode vehicle search response: %w", err)
	}

	if len(result.Hits.Hits) == 0 {
		return nil, nil
	}
	vehicle := result.Hits.Hits[0].Source
	return &vehicle, nil
}

// Index writes or overwrites a vehicle document, keyed by vehicle id.
func (v *VehicleIndex) Index(ctx context.Context, vehicle *model.Vehicle) error {
	body, err := json.Marshal(vehicle)
	if err != nil {
		return fmt.Errorf("failed to marshal vehicle document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      v.index,
		DocumentID: vehicle.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, v.client)
	if err != nil {
		return fmt.Errorf("failed to index vehicle: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("vehicle index returned status %s: %s", res.Status(), strings.TrimSpace(string(msg)))
	}
	return nil
}

func (v *VehicleIndex) HealthCheck(ctx context.Context) error {
	res, err := v.client.Ping(v.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping returned status %s", res.Status())
	}
	return nil
}

func (v *VehicleIndex) Close() {
	// The underlying transport holds no resources needing explicit release.
}
