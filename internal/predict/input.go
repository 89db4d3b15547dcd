// Package predict scores submitted customers with the persisted churn
// model and derives sales forecasts and product suggestions from the
// purchase history.
package predict

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"github.com/Harley062/projeto-IA-Adega/internal/dataset"
	"github.com/Harley062/projeto-IA-Adega/internal/features"
)

// CustomerInput is one submitted customer record. Keys follow the seller's
// column names; English aliases are accepted by DecodeInput.
type CustomerInput struct {
	CustomerID  int64     `mapstructure:"cliente_id" validate:"gte=0"`
	Name        string    `mapstructure:"nome" validate:"required"`
	Age         float64   `mapstructure:"idade" validate:"gte=0,lte=130"`
	City        string    `mapstructure:"cidade" validate:"required"`
	Engagement  float64   `mapstructure:"pontuacao_engajamento" validate:"gte=0,lte=10"`
	Subscriber  string    `mapstructure:"assinante_clube" validate:"required"`
	Value       float64   `mapstructure:"valor" validate:"gte=0"`
	Quantity    float64   `mapstructure:"quantidade" validate:"gte=0"`
	Country     string    `mapstructure:"pais" validate:"required"`
	GrapeType   string    `mapstructure:"tipo_uva" validate:"required"`
	ProductID   int64     `mapstructure:"produto_id" validate:"gte=0"`
	ProductName string    `mapstructure:"nome_produto"`
	Vintage     float64   `mapstructure:"safra" validate:"gte=0"`
	PurchasedAt time.Time `mapstructure:"data_compra"`
}

// RequiredKeys must be present in every submitted record.
var RequiredKeys = []string{
	dataset.ColCustomerID, dataset.ColName, dataset.ColAge, dataset.ColCity, dataset.ColEngagement,
	dataset.ColSubscriber, dataset.ColValue, dataset.ColQuantity, dataset.ColCountry, dataset.ColGrapeType,
}

var aliases = map[string]string{
	"customer_id":       dataset.ColCustomerID,
	"name":              dataset.ColName,
	"age":               dataset.ColAge,
	"city":              dataset.ColCity,
	"engagement_score":  dataset.ColEngagement,
	"engagement":        dataset.ColEngagement,
	"subscription_flag": dataset.ColSubscriber,
	"subscriber":        dataset.ColSubscriber,
	"value":             dataset.ColValue,
	"quantity":          dataset.ColQuantity,
	"country":           dataset.ColCountry,
	"grape_type":        dataset.ColGrapeType,
	"product_id":        dataset.ColProductID,
	"product_name":      dataset.ColProductName,
	"vintage":           dataset.ColVintage,
	"purchase_date":     dataset.ColDate,
	"purchase_id":       dataset.ColPurchaseID,
}

// InputError describes a record that cannot be scored.
type InputError struct {
	Missing []string
	Invalid []string
	Err     error
}

func (e *InputError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing keys: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid values: "+strings.Join(e.Invalid, "; "))
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return "invalid customer record: " + strings.Join(parts, "; ")
}

func (e *InputError) Unwrap() error { return e.Err }

var validate = validator.New(validator.WithRequiredStructEnabled())

// canonicalKeys renames English aliases and lowercases keys. Blank values
// are dropped so they count as missing.
func canonicalKeys(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		key := strings.ToLower(strings.TrimSpace(k))
		if c, ok := aliases[key]; ok {
			key = c
		}
		switch s := v.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(s) == "" {
				continue
			}
		case sql.NullString:
			if !s.Valid || strings.TrimSpace(s.String) == "" {
				continue
			}
			v = s.String
		}
		out[key] = v
	}
	return out
}

func stringToTime(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	t := dataset.ParseDate(sql.NullString{String: data.(string), Valid: true})
	if t.IsZero() {
		return nil, fmt.Errorf("unrecognised date %q", data)
	}
	return t, nil
}

// trimNumbers accepts "12,50" style decimals for numeric fields.
func trimNumbers(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	switch to.Kind() {
	case reflect.Float32, reflect.Float64:
		if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
	}
	return s, nil
}

// DecodeInput converts a loosely typed record into a CustomerInput. Numbers
// may arrive as strings. Missing required keys, unparseable values and
// out-of-range values are reported together in an *InputError.
func DecodeInput(record map[string]any) (CustomerInput, error) {
	rec := canonicalKeys(record)

	var missing []string
	for _, k := range RequiredKeys {
		if _, ok := rec[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return CustomerInput{}, &InputError{Missing: missing}
	}

	var in CustomerInput
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(stringToTime, trimNumbers),
		WeaklyTypedInput: true,
		Result:           &in,
	})
	if err != nil {
		return CustomerInput{}, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(rec); err != nil {
		return CustomerInput{}, &InputError{Err: err}
	}

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			invalid := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				invalid = append(invalid, fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			}
			sort.Strings(invalid)
			return CustomerInput{}, &InputError{Invalid: invalid}
		}
		return CustomerInput{}, &InputError{Err: err}
	}
	return in, nil
}

// Observation maps the input onto the feature engineer's record.
func (in CustomerInput) Observation() features.Observation {
	return features.Observation{
		CustomerID:  in.CustomerID,
		Name:        in.Name,
		Age:         in.Age,
		City:        in.City,
		Engagement:  in.Engagement,
		Subscriber:  in.Subscriber,
		Value:       in.Value,
		Quantity:    in.Quantity,
		Country:     in.Country,
		GrapeType:   in.GrapeType,
		ProductID:   in.ProductID,
		ProductName: in.ProductName,
		Vintage:     in.Vintage,
		PurchasedAt: in.PurchasedAt,
	}
}
