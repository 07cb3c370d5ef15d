package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sucolo/hexfeat/internal/model"
)

type searchRequest struct {
	Size        int                 `json:"size"`
	Query       map[string]any      `json:"query"`
	Source      []string            `json:"_source,omitempty"`
	Sort        []map[string]string `json:"sort"`
	SearchAfter []any               `json:"search_after,omitempty"`
}

type searchHit struct {
	ID     string         `json:"_id"`
	Source map[string]any `json:"_source"`
	Sort   []any          `json:"sort"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// sortField is the keyword each document kind is paged on.
var sortField = map[string]string{
	model.DocTypePOI:       model.FieldPOIID,
	model.DocTypeDistrict:  model.FieldDistrict,
	model.DocTypeHexCenter: model.FieldHexID,
}

// search pages through every document of one type in the city's index,
// decoding each hit. A nil source returns whole documents.
func (c *Client) search(ctx context.Context, city, docType string, source []string, fn func(model.Document) error) error {
	req := searchRequest{
		Size:   c.pageSize,
		Query:  map[string]any{"term": map[string]any{model.FieldType: docType}},
		Source: source,
		Sort:   []map[string]string{{sortField[docType]: "asc"}},
	}
	op := "search " + docType

	for {
		hits, err := c.searchPage(ctx, city, op, req)
		if err != nil {
			return err
		}
		for _, h := range hits {
			src := h.Source
			if src == nil {
				src = map[string]any{}
			}
			// The projection may drop the type field; the query already
			// pinned it.
			src[model.FieldType] = docType
			doc, err := model.DecodeDocument(h.ID, src)
			if err != nil {
				return model.NewGatewayError(model.StoreElasticsearch, op, err)
			}
			if err := fn(doc); err != nil {
				return err
			}
		}
		if len(hits) < req.Size {
			return nil
		}
		req.SearchAfter = hits[len(hits)-1].Sort
	}
}

func (c *Client) searchPage(ctx context.Context, city, op string, req searchRequest) ([]searchHit, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "docstore: encode search")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.es.Search(
		c.es.Search.WithIndex(city),
		c.es.Search.WithBody(bytes.NewReader(body)),
		c.es.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, model.NewGatewayError(model.StoreElasticsearch, op, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, eris.Wrapf(model.ErrCityNotFound, "docstore: index %q", city)
	}
	if err := responseError(res); err != nil {
		return nil, model.NewGatewayError(model.StoreElasticsearch, op, err)
	}

	var out searchResponse
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, model.NewGatewayError(model.StoreElasticsearch, op, eris.Wrap(err, "docstore: decode search"))
	}
	return out.Hits.Hits, nil
}

func projection(idField, geoField string, columns []string, onlyGeo bool) []string {
	if onlyGeo {
		return []string{idField, geoField}
	}
	if len(columns) == 0 {
		return nil
	}
	return append([]string{idField}, columns...)
}

// HexCenters returns the city's hexagon-center documents. With onlyLocation
// the projection is the cell id and location; otherwise it is the cell id
// and the given columns, or everything when columns is empty.
func (c *Client) HexCenters(ctx context.Context, city string, columns []string, onlyLocation bool) ([]model.HexCenterDocument, error) {
	var out []model.HexCenterDocument
	err := c.search(ctx, city, model.DocTypeHexCenter, projection(model.FieldHexID, model.FieldLocation, columns, onlyLocation),
		func(d model.Document) error {
			out = append(out, d.(model.HexCenterDocument))
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Districts returns the city's district documents, projected like
// HexCenters with the polygon as geometry.
func (c *Client) Districts(ctx context.Context, city string, columns []string, onlyPolygon bool) ([]model.DistrictDocument, error) {
	var out []model.DistrictDocument
	err := c.search(ctx, city, model.DocTypeDistrict, projection(model.FieldDistrict, model.FieldPolygon, columns, onlyPolygon),
		func(d model.Document) error {
			out = append(out, d.(model.DistrictDocument))
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// POIs returns the city's POI documents, projected like HexCenters.
func (c *Client) POIs(ctx context.Context, city string, columns []string, onlyLocation bool) ([]model.POIDocument, error) {
	var out []model.POIDocument
	err := c.search(ctx, city, model.DocTypePOI, projection(model.FieldPOIID, model.FieldLocation, columns, onlyLocation),
		func(d model.Document) error {
			out = append(out, d.(model.POIDocument))
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}
