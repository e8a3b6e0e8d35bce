package qdrant

import (
	"fmt"

	qdrant "github.com/qdrant/go-client/qdrant"
)

func validateCollection(name string, dim int) error {
	if name == "" {
		return fmt.Errorf("collection name cannot be empty")
	}
	if dim <= 0 {
		return fmt.Errorf("vector dimension must be greater than 0")
	}
	return nil
}

func validateSearchInput(collection string, vector []float32, topK int) error {
	if collection == "" {
		return fmt.Errorf("collection name cannot be empty")
	}
	if len(vector) == 0 {
		return fmt.Errorf("vector cannot be empty")
	}
	if topK <= 0 {
		return fmt.Errorf("topK must be greater than 0")
	}
	return nil
}

// extractVectorDetails walks the nested oneof config for the unnamed vector
// params. Missing pieces yield (0, "").
func extractVectorDetails(info *qdrant.CollectionInfo) (int, string) {
	if info == nil ||
		info.Config == nil ||
		info.Config.Params == nil ||
		info.Config.Params.VectorsConfig == nil ||
		info.Config.Params.VectorsConfig.Config == nil {
		return 0, ""
	}
	if cfg, ok := info.Config.Params.VectorsConfig.Config.(*qdrant.VectorsConfig_Params); ok {
		return int(cfg.Params.Size), cfg.Params.Distance.String()
	}
	return 0, ""
}

func toPointStructs(points []Point) ([]*qdrant.PointStruct, error) {
	out := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if p.ID == "" {
			return nil, fmt.Errorf("point id cannot be empty")
		}
		if len(p.Vector) == 0 {
			return nil, fmt.Errorf("point %s has an empty vector", p.ID)
		}
		payload, err := qdrant.TryValueMap(normalizePayload(p.Payload))
		if err != nil {
			return nil, fmt.Errorf("encode payload of point %s: %w", p.ID, err)
		}
		out = append(out, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		})
	}
	return out, nil
}

// normalizePayload rewrites typed slices and nested maps into the []any and
// map[string]any shapes the value converter accepts.
func normalizePayload(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case []string:
		list := make([]any, len(t))
		for i, s := range t {
			list[i] = s
		}
		return list
	case []any:
		list := make([]any, len(t))
		for i, s := range t {
			list[i] = normalizeValue(s)
		}
		return list
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		return m
	case map[string]any:
		return normalizePayload(t)
	default:
		return v
	}
}

func parseScoredPoints(resp []*qdrant.ScoredPoint) ([]ScoredPoint, error) {
	out := make([]ScoredPoint, 0, len(resp))
	for _, r := range resp {
		id, err := pointIDString(r.GetId())
		if err != nil {
			return nil, err
		}
		out = append(out, ScoredPoint{
			ID:      id,
			Score:   r.GetScore(),
			Payload: decodePayload(r.GetPayload()),
		})
	}
	return out, nil
}

func pointIDString(id *qdrant.PointId) (string, error) {
	switch v := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num), nil
	case *qdrant.PointId_Uuid:
		return v.Uuid, nil
	default:
		return "", fmt.Errorf("unexpected point id type %T", v)
	}
}

func decodePayload(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = decodeValue(v)
	}
	return out
}

func decodeValue(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_ListValue:
		values := k.ListValue.GetValues()
		list := make([]any, len(values))
		for i, item := range values {
			list[i] = decodeValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return decodePayload(k.StructValue.GetFields())
	default:
		return nil
	}
}
