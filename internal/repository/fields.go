package repository

import (
	"time"

	"github.com/Cheertaboi/coupon-studio/internal/docstore"
	"github.com/Cheertaboi/coupon-studio/internal/geo"
)

// Readers for docstore.Fields. Missing or mistyped values read as zero.

func str(f docstore.Fields, key string) string {
	s, _ := f[key].(string)
	return s
}

func boolean(f docstore.Fields, key string) bool {
	b, _ := f[key].(bool)
	return b
}

func timestamp(f docstore.Fields, key string) time.Time {
	t, _ := f[key].(time.Time)
	return t
}

func number(f docstore.Fields, key string) float64 {
	switch n := f[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func nested(f docstore.Fields, key string) docstore.Fields {
	m, _ := f[key].(map[string]any)
	return m
}

func point(f docstore.Fields, key string) geo.Point {
	m := nested(f, key)
	return geo.Point{Lat: number(m, "lat"), Lng: number(m, "lng")}
}

func pointFields(p geo.Point) docstore.Fields {
	return docstore.Fields{"lat": p.Lat, "lng": p.Lng}
}

func stringList(f docstore.Fields, key string) []string {
	switch v := f[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func stringsValue(v []string) []any {
	out := make([]any, len(v))
	for i, s := range v {
		out[i] = s
	}
	return out
}
