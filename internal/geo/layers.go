package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Layer is one published dataset of the workspace.
type Layer struct {
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	Updated     string `json:"updated"`
	ViewURL     string `json:"view_url"`
	MetadataURL string `json:"metadata_url"`
}

// ListLayers returns the layers of the client's workspace, unqualified.
func (c *Client) ListLayers(ctx context.Context) ([]Layer, error) {
	body, err := c.get(ctx, "list layers", c.base+"/rest/layers")
	if err != nil {
		return nil, err
	}
	names, err := decodeLayerNames(body)
	if err != nil {
		return nil, fmt.Errorf("decode layers: %w", err)
	}
	prefix := c.workspace + ":"
	out := []Layer{}
	for _, n := range names {
		short, ok := strings.CutPrefix(n, prefix)
		if !ok || short == "" {
			continue
		}
		out = append(out, Layer{
			Name:        short,
			Owner:       "admin",
			Updated:     "N/A",
			ViewURL:     "/datasets/view/" + url.PathEscape(short) + "/",
			MetadataURL: "/datasets/metadata/" + url.PathEscape(short) + "/",
		})
	}
	return out, nil
}

// decodeLayerNames reads {"layers":{"layer":[{"name":...}]}}. GeoServer sends
// {"layers":""} when nothing is published.
func decodeLayerNames(body []byte) ([]string, error) {
	var doc struct {
		Layers json.RawMessage `json:"layers"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	raw := bytes.TrimSpace(doc.Layers)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	var inner struct {
		Layer []struct {
			Name string `json:"name"`
		} `json:"layer"`
	}
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(inner.Layer))
	for _, l := range inner.Layer {
		names = append(names, l.Name)
	}
	return names, nil
}

// FeatureSample is the first few features of a layer as a table.
type FeatureSample struct {
	Columns []string
	Rows    [][]string
}

// Features fetches up to MaxFeatures features of layer through WFS 1.0.0.
// Columns are the property keys of the first feature, in document order.
func (c *Client) Features(ctx context.Context, layer string) (*FeatureSample, error) {
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", "1.0.0")
	params.Set("request", "GetFeature")
	params.Set("typeName", c.QualifiedName(layer))
	params.Set("outputFormat", "application/json")
	params.Set("maxFeatures", strconv.Itoa(c.maxFeatures))
	body, err := c.get(ctx, "get features", c.wfsURL(params))
	if err != nil {
		return nil, err
	}
	sample, err := decodeFeatures(body)
	if err != nil {
		return nil, fmt.Errorf("decode features of %s: %w", layer, err)
	}
	return sample, nil
}

func decodeFeatures(body []byte) (*FeatureSample, error) {
	var doc struct {
		Features []struct {
			Properties json.RawMessage `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	out := &FeatureSample{Columns: []string{}, Rows: [][]string{}}
	if len(doc.Features) == 0 {
		return out, nil
	}
	cols, err := objectKeys(doc.Features[0].Properties)
	if err != nil {
		return nil, err
	}
	out.Columns = cols
	for _, f := range doc.Features {
		props := map[string]any{}
		if len(f.Properties) > 0 && !bytes.Equal(bytes.TrimSpace(f.Properties), []byte("null")) {
			dec := json.NewDecoder(bytes.NewReader(f.Properties))
			dec.UseNumber()
			if err := dec.Decode(&props); err != nil {
				return nil, err
			}
		}
		row := make([]string, len(cols))
		for i, k := range cols {
			row[i] = formatProperty(props[k])
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// objectKeys lists the top-level keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	keys := []string{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return keys, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return keys, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("properties is not an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		keys = append(keys, tok.(string))
		// skip the value
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func formatProperty(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// Metadata describes one layer for the metadata page.
type Metadata struct {
	Name     string
	Owner    string
	Updated  string
	Abstract string
	Keywords string
	BBox     string
	CRS      string
	Format   string
}

// DefaultMetadata is what the metadata page shows when GeoServer has nothing.
func DefaultMetadata(layer string) Metadata {
	return Metadata{
		Name:     layer,
		Owner:    "admin",
		Updated:  "N/A",
		Abstract: "No abstract available",
		Keywords: "N/A",
		BBox:     "N/A",
		CRS:      "EPSG:4326",
		Format:   "WMS",
	}
}

// Metadata fetches the layer schema through WFS DescribeFeatureType and
// overlays it on DefaultMetadata. On error the defaults are returned along
// with the error.
func (c *Client) Metadata(ctx context.Context, layer string) (Metadata, error) {
	md := DefaultMetadata(layer)
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", "1.1.0")
	params.Set("request", "DescribeFeatureType")
	params.Set("typeName", c.QualifiedName(layer))
	params.Set("outputFormat", "application/json")
	body, err := c.get(ctx, "describe feature type", c.wfsURL(params))
	if err != nil {
		return md, err
	}
	if err := applyDescription(&md, body); err != nil {
		return md, fmt.Errorf("decode description of %s: %w", layer, err)
	}
	return md, nil
}

func applyDescription(md *Metadata, body []byte) error {
	var doc struct {
		FeatureTypes []map[string]json.RawMessage `json:"featureTypes"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return err
	}
	if doc.FeatureTypes == nil {
		return nil
	}
	if len(doc.FeatureTypes) == 0 {
		return fmt.Errorf("featureTypes is empty")
	}
	ft := doc.FeatureTypes[0]

	md.Abstract = "No abstract"
	if raw, ok := ft["title"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			md.Abstract = s
		}
	}
	md.Keywords = "N/A"
	if raw, ok := ft["keywords"]; ok {
		var kw []string
		if json.Unmarshal(raw, &kw) == nil && len(kw) > 0 {
			md.Keywords = strings.Join(kw, ", ")
		}
	}
	if raw, ok := ft["srs"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			md.CRS = s
		}
	}
	if raw, ok := ft["boundingBox"]; ok {
		md.BBox = formatBBox(raw)
	}
	return nil
}

// formatBBox renders a bounding box as "minx, miny, maxx, maxy" when it has
// those fields, and as compact JSON otherwise.
func formatBBox(raw json.RawMessage) string {
	var box map[string]json.RawMessage
	if err := json.Unmarshal(raw, &box); err == nil {
		parts := make([]string, 0, 4)
		for _, k := range []string{"minx", "miny", "maxx", "maxy"} {
			var n json.Number
			if v, ok := box[k]; ok && json.Unmarshal(v, &n) == nil {
				parts = append(parts, n.String())
			}
		}
		if len(parts) == 4 {
			return strings.Join(parts, ", ")
		}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return "N/A"
	}
	b, _ := json.Marshal(v)
	return string(b)
}
