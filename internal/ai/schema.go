package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
)

// ExtractedItem is one line item read from text or an image.
type ExtractedItem struct {
	Description string          `json:"description" jsonschema:"minLength=1,description=Item or service name as written on the document"`
	Quantity    decimal.Decimal `json:"quantity" jsonschema:"description=Quantity; 1 when not stated"`
	Unit        string          `json:"unit" jsonschema:"description=Unit of measure such as ชิ้น or งาน; empty when not stated"`
	UnitPrice   decimal.Decimal `json:"unit_price" jsonschema:"description=Price per unit in baht before VAT"`
}

// ItemsResult is the reply shape for line-item extraction.
type ItemsResult struct {
	Items []ExtractedItem `json:"items"`
}

// CustomerResult is the reply shape for customer extraction.
type CustomerResult struct {
	Name          string `json:"name" jsonschema:"description=Registered company or person name"`
	TaxID         string `json:"tax_id" jsonschema:"pattern=^([0-9]{13})?$,description=13-digit Thai tax ID; empty when unknown"`
	BranchCode    string `json:"branch_code" jsonschema:"description=5-digit branch code; 00000 for head office"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	ContactPerson string `json:"contact_person"`
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// replySchema pairs the JSON schema shown to the model with its compiled validator.
type replySchema struct {
	doc      map[string]any
	text     string
	compiled *sjsonschema.Schema
}

func newReplySchema(name string, v any) (*replySchema, error) {
	reflector := jsonschema.Reflector{
		Anonymous:                 true,
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == decimalType {
				// shopspring/decimal marshals as a quoted string.
				return &jsonschema.Schema{Type: "string", Pattern: `^-?[0-9]+(\.[0-9]+)?$`}
			}
			return nil
		},
	}
	b, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", name, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal %s schema: %w", name, err)
	}

	compiler := sjsonschema.NewCompiler()
	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add %s schema: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return &replySchema{doc: doc, text: string(b), compiled: compiled}, nil
}

// validate checks a coerced result against the schema by round-tripping it through JSON.
func (s *replySchema) validate(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	if err := s.compiled.Validate(doc); err != nil {
		return fmt.Errorf("result does not match schema: %w", err)
	}
	return nil
}

var (
	itemsSchema = sync.OnceValues(func() (*replySchema, error) {
		return newReplySchema("items", &ItemsResult{})
	})
	customerSchema = sync.OnceValues(func() (*replySchema, error) {
		return newReplySchema("customer", &CustomerResult{})
	})
)
