package docstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/require"
)

// fakeES is an in-memory stand-in for the handful of Elasticsearch APIs
// the gateway calls. Documents with a "reject" field fail to index.
type fakeES struct {
	mu       sync.Mutex
	indices  map[string]map[string]map[string]any
	searches []map[string]any
	status   int
}

func newFakeES() *fakeES {
	return &fakeES{indices: make(map[string]map[string]map[string]any)}
}

func (f *fakeES) put(index, id string, doc map[string]any) {
	if f.indices[index] == nil {
		f.indices[index] = make(map[string]map[string]any)
	}
	f.indices[index][id] = doc
}

func (f *fakeES) client(t *testing.T, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return New(es, opts...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(typ, reason string) map[string]any {
	return map[string]any{"error": map[string]any{"type": typ, "reason": reason}}
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != 0 {
		writeJSON(w, f.status, errorBody("cluster_block_exception", "blocked"))
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/":
		writeJSON(w, http.StatusOK, map[string]any{"tagline": "You Know, for Search"})
	case len(parts) == 1 && r.Method == http.MethodHead:
		if _, ok := f.indices[parts[0]]; ok {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case len(parts) == 1 && r.Method == http.MethodPut:
		if _, ok := f.indices[parts[0]]; ok {
			writeJSON(w, http.StatusBadRequest, errorBody("resource_already_exists_exception", parts[0]))
			return
		}
		f.indices[parts[0]] = make(map[string]map[string]any)
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true, "index": parts[0]})
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if _, ok := f.indices[parts[0]]; !ok {
			writeJSON(w, http.StatusNotFound, errorBody("index_not_found_exception", parts[0]))
			return
		}
		delete(f.indices, parts[0])
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
	case len(parts) == 2 && parts[1] == "_alias":
		out := make(map[string]any, len(f.indices))
		for name := range f.indices {
			out[name] = map[string]any{"aliases": map[string]any{}}
		}
		writeJSON(w, http.StatusOK, out)
	case len(parts) == 2 && parts[1] == "_refresh":
		writeJSON(w, http.StatusOK, map[string]any{"_shards": map[string]any{"failed": 0}})
	case len(parts) == 2 && parts[1] == "_search":
		f.handleSearch(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "_bulk":
		f.handleBulk(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "_doc":
		var doc map[string]any
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("parse_exception", err.Error()))
			return
		}
		if _, bad := doc["reject"]; bad {
			writeJSON(w, http.StatusBadRequest, errorBody("mapper_parsing_exception", "failed to parse"))
			return
		}
		f.put(parts[0], parts[2], doc)
		writeJSON(w, http.StatusCreated, map[string]any{"_id": parts[2], "result": "created"})
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("fake_unsupported", r.Method+" "+r.URL.Path))
	}
}

func (f *fakeES) handleSearch(w http.ResponseWriter, r *http.Request, index string) {
	docs, ok := f.indices[index]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("index_not_found_exception", index))
		return
	}

	var req struct {
		Size        int                          `json:"size"`
		Query       map[string]map[string]string `json:"query"`
		Source      []string                     `json:"_source"`
		Sort        []map[string]string          `json:"sort"`
		SearchAfter []any                        `json:"search_after"`
	}
	body, _ := io.ReadAll(r.Body)
	raw := map[string]any{}
	_ = json.Unmarshal(body, &raw)
	f.searches = append(f.searches, raw)
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("parse_exception", err.Error()))
		return
	}

	typ := req.Query["term"]["type"]
	var sortKey string
	for k := range req.Sort[0] {
		sortKey = k
	}

	type hit struct {
		id  string
		key string
		doc map[string]any
	}
	var hits []hit
	for id, d := range docs {
		if d["type"] != typ {
			continue
		}
		hits = append(hits, hit{id: id, key: fmt.Sprint(d[sortKey]), doc: d})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].key < hits[j].key })

	if len(req.SearchAfter) > 0 {
		after := fmt.Sprint(req.SearchAfter[0])
		i := sort.Search(len(hits), func(i int) bool { return hits[i].key > after })
		hits = hits[i:]
	}
	if len(hits) > req.Size {
		hits = hits[:req.Size]
	}

	out := make([]map[string]any, len(hits))
	for i, h := range hits {
		src := h.doc
		if req.Source != nil {
			src = make(map[string]any)
			for _, field := range req.Source {
				if v, ok := h.doc[field]; ok {
					src[field] = v
				}
			}
		}
		out[i] = map[string]any{"_id": h.id, "_source": src, "sort": []any{h.key}}
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": map[string]any{"hits": out}})
}

func (f *fakeES) handleBulk(w http.ResponseWriter, r *http.Request, index string) {
	sc := bufio.NewScanner(r.Body)
	sc.Buffer(make([]byte, 1<<20), 1<<24)

	var items []map[string]any
	hasErrors := false
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var meta map[string]map[string]any
		if err := json.Unmarshal(line, &meta); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("parse_exception", err.Error()))
			return
		}
		if !sc.Scan() {
			break
		}
		var doc map[string]any
		_ = json.Unmarshal(sc.Bytes(), &doc)

		id, _ := meta["index"]["_id"].(string)
		target := index
		if idx, ok := meta["index"]["_index"].(string); ok && idx != "" {
			target = idx
		}
		if _, bad := doc["reject"]; bad {
			hasErrors = true
			items = append(items, map[string]any{"index": map[string]any{
				"_index": target, "_id": id, "status": 400,
				"error": map[string]any{"type": "mapper_parsing_exception", "reason": "failed to parse"},
			}})
			continue
		}
		f.put(target, id, doc)
		items = append(items, map[string]any{"index": map[string]any{
			"_index": target, "_id": id, "status": 201, "result": "created",
		}})
	}
	writeJSON(w, http.StatusOK, map[string]any{"took": 1, "errors": hasErrors, "items": items})
}
