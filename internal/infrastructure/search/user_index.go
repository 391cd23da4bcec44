// Package search mirrors bot users into Elasticsearch for the admin
// directory.
package search

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/MjBots-creater/save-restricted-bot/internal/domain/entity"
)

// NewESClient creates an Elasticsearch client with optional basic auth.
func NewESClient(addrs []string, username, password string) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: addrs,
		Username:  username,
		Password:  password,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 5 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	}
	return elasticsearch.NewClient(cfg)
}

// UserDoc is the indexed form of a user.
type UserDoc struct {
	ID             int64      `json:"id"`
	DisplayName    string     `json:"display_name"`
	Destination    string     `json:"destination,omitempty"`
	Premium        bool       `json:"premium"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func docFrom(u *entity.User) UserDoc {
	return UserDoc{
		ID:             u.ID,
		DisplayName:    u.DisplayName,
		Destination:    u.Destination,
		Premium:        u.Premium,
		LastVerifiedAt: u.LastVerifiedAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

type UserIndex struct {
	ES      *elasticsearch.Client
	Index   string
	Timeout time.Duration
}

func NewUserIndex(es *elasticsearch.Client, index string) *UserIndex {
	return &UserIndex{ES: es, Index: index, Timeout: 3 * time.Second}
}

func (x *UserIndex) IndexUser(ctx context.Context, u *entity.User) error {
	b, err := json.Marshal(docFrom(u))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      x.Index,
		DocumentID: strconv.FormatInt(u.ID, 10),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	return x.do(ctx, req)
}

func (x *UserIndex) DeleteUser(ctx context.Context, id int64) error {
	req := esapi.DeleteRequest{Index: x.Index, DocumentID: strconv.FormatInt(id, 10)}
	err := x.do(ctx, req)
	if err != nil && strings.Contains(err.Error(), "404") {
		return nil
	}
	return err
}

// DeleteAll removes every document but keeps the index.
func (x *UserIndex) DeleteAll(ctx context.Context) error {
	body := `{"query":{"match_all":{}}}`
	req := esapi.DeleteByQueryRequest{Index: []string{x.Index}, Body: strings.NewReader(body)}
	return x.do(ctx, req)
}

// Search matches q against names and destinations, or the exact id when q
// is numeric.
func (x *UserIndex) Search(ctx context.Context, q string, size int) ([]UserDoc, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	should := []any{
		map[string]any{"multi_match": map[string]any{
			"query":  q,
			"fields": []string{"display_name^2", "destination"},
		}},
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(q), 10, 64); err == nil {
		should = append(should, map[string]any{"term": map[string]any{"id": id}})
	}
	query := map[string]any{
		"query": map[string]any{"bool": map[string]any{"should": should, "minimum_should_match": 1}},
		"size":  size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, x.timeout())
	defer cancel()
	res, err := x.ES.Search(
		x.ES.Search.WithContext(c),
		x.ES.Search.WithIndex(x.Index),
		x.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source UserDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]UserDoc, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

// Ping reports whether the cluster answers.
func Ping(ctx context.Context, es *elasticsearch.Client) error {
	x := UserIndex{ES: es}
	return x.do(ctx, esapi.PingRequest{})
}

func (x *UserIndex) do(ctx context.Context, req esapi.Request) error {
	c, cancel := context.WithTimeout(ctx, x.timeout())
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es: %s", res.Status())
	}
	return nil
}

func (x *UserIndex) timeout() time.Duration {
	if x.Timeout <= 0 {
		return 3 * time.Second
	}
	return x.Timeout
}
