package database

import (
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/richardvergely/GeoNature/internal/domain"
)

const dateLayout = "2006-01-02"

// releveFeature renders one releve row as a GeoJSON feature.
func releveFeature(releve domain.Releve, geomJSON []byte) (*geojson.Feature, error) {
	geom, err := geojson.UnmarshalGeometry(geomJSON)
	if err != nil {
		return nil, fmt.Errorf("unmarshal geometry: %w", err)
	}

	feat := geojson.NewFeature(geom.Geometry())
	feat.ID = releve.ID
	feat.Properties["id_releve"] = releve.ID
	feat.Properties["id_dataset"] = releve.DatasetID
	feat.Properties["cd_nom"] = releve.TaxonCode
	feat.Properties["nom_cite"] = releve.NomCite
	feat.Properties["date_min"] = releve.DateMin.Format(dateLayout)
	feat.Properties["date_max"] = releve.DateMax.Format(dateLayout)
	feat.Properties["observers"] = releve.Observers
	if releve.Comment != "" {
		feat.Properties["comment"] = releve.Comment
	}
	return feat, nil
}

// releveFromFeature extracts releve columns from a submitted feature.
func releveFromFeature(feature *geojson.Feature) (domain.Releve, error) {
	var releve domain.Releve

	if feature == nil || feature.Geometry == nil {
		return releve, fmt.Errorf("releve feature requires a geometry")
	}

	taxon, ok := intProperty(feature, "cd_nom")
	if !ok {
		return releve, fmt.Errorf("releve feature requires a cd_nom property")
	}
	releve.TaxonCode = taxon
	releve.DatasetID, _ = intProperty(feature, "id_dataset")

	var err error
	if releve.DateMin, err = dateProperty(feature, "date_min"); err != nil {
		return releve, err
	}
	if releve.DateMax, err = dateProperty(feature, "date_max"); err != nil {
		return releve, err
	}
	if releve.DateMax.Before(releve.DateMin) {
		return releve, fmt.Errorf("date_max precedes date_min")
	}

	releve.NomCite, _ = feature.Properties["nom_cite"].(string)
	releve.Comment, _ = feature.Properties["comment"].(string)
	releve.Observers = stringSliceProperty(feature, "observers")

	return releve, nil
}

func intProperty(feature *geojson.Feature, key string) (int64, bool) {
	switch v := feature.Properties[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func dateProperty(feature *geojson.Feature, key string) (time.Time, error) {
	raw, ok := feature.Properties[key].(string)
	if !ok {
		return time.Time{}, fmt.Errorf("releve feature requires a %s property", key)
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be formatted %s: %w", key, dateLayout, err)
	}
	return date, nil
}

func stringSliceProperty(feature *geojson.Feature, key string) []string {
	switch v := feature.Properties[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
