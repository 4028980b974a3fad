// Package apidoc builds the OpenAPI description of the HTTP API from the
// route table and the request and response types.
package apidoc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

const bearerScheme = "bearerAuth"

var (
	pathParam = regexp.MustCompile(`\{([^}]+)\}`)
	timeType  = reflect.TypeOf(time.Time{})
)

// Build assembles the document
func Build(version string) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Food Ordering API",
			Version:     version,
			Description: "Menu, checkout, payment verification and order management.",
		},
		Paths: &openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
			SecuritySchemes: openapi3.SecuritySchemes{
				bearerScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
	}

	for _, route := range Routes {
		if err := addRoute(doc, route); err != nil {
			return nil, fmt.Errorf("document %s %s: %w", route.Method, route.Path, err)
		}
	}
	return doc, nil
}

// JSON renders doc as indented JSON
func JSON(doc *openapi3.T) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal OpenAPI document to JSON: %w", err)
	}
	return data, nil
}

// YAML renders doc as YAML
func YAML(doc *openapi3.T) ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal OpenAPI document to YAML: %w", err)
	}
	return data, nil
}

func addRoute(doc *openapi3.T, route Route) error {
	item := doc.Paths.Find(route.Path)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(route.Path, item)
	}

	op := &openapi3.Operation{
		Summary:     route.Summary,
		OperationID: operationID(route),
		Responses:   &openapi3.Responses{},
	}

	for _, m := range pathParam.FindAllStringSubmatch(route.Path, -1) {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: &openapi3.Parameter{
			Name:     m[1],
			In:       openapi3.ParameterInPath,
			Required: true,
			Schema:   &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
		}})
	}

	switch route.Access {
	case User, Admin:
		op.Security = &openapi3.SecurityRequirements{{bearerScheme: []string{}}}
	case Signed:
		if route.Request == nil {
			op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: &openapi3.Parameter{
				Name:        "X-Razorpay-Signature",
				In:          openapi3.ParameterInHeader,
				Required:    true,
				Description: "hex HMAC-SHA256 of the raw body",
				Schema:      &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
			}})
		}
	}

	if route.Request != nil {
		schema := register(doc, route.Request)
		op.RequestBody = &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
			Required: true,
			Content:  openapi3.NewContentWithJSONSchemaRef(schema),
		}}
	}

	desc := http.StatusText(route.Status)
	resp := &openapi3.Response{Description: &desc}
	if route.Response != nil {
		resp.Content = openapi3.NewContentWithJSONSchemaRef(register(doc, route.Response))
	}
	op.Responses.Set(strconv.Itoa(route.Status), &openapi3.ResponseRef{Value: resp})

	if route.Access != Public || route.Request != nil {
		addErrorResponses(doc, op, route.Access)
	}

	switch route.Method {
	case http.MethodGet:
		item.Get = op
	case http.MethodPost:
		item.Post = op
	case http.MethodPatch:
		item.Patch = op
	case http.MethodDelete:
		item.Delete = op
	default:
		return fmt.Errorf("unsupported method %s", route.Method)
	}
	return nil
}

func addErrorResponses(doc *openapi3.T, op *openapi3.Operation, access Access) {
	errSchema := errorSchema(doc)
	codes := []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError}
	if access == User || access == Admin {
		codes = append(codes, http.StatusUnauthorized, http.StatusForbidden)
	}
	for _, code := range codes {
		desc := http.StatusText(code)
		op.Responses.Set(strconv.Itoa(code), &openapi3.ResponseRef{Value: &openapi3.Response{
			Description: &desc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errSchema),
		}})
	}
}

func errorSchema(doc *openapi3.T) *openapi3.SchemaRef {
	if s, ok := doc.Components.Schemas["Error"]; ok {
		return s
	}
	s := &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type: &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{
			"success": {Value: openapi3.NewBoolSchema()},
			"error":   {Value: openapi3.NewStringSchema()},
		},
		Required: []string{"success", "error"},
	}}
	doc.Components.Schemas["Error"] = s
	return s
}

// register builds the schema for v and records named struct types as
// components.
func register(doc *openapi3.T, v any) *openapi3.SchemaRef {
	t := reflect.TypeOf(v)
	schema := schemaFor(t)
	for t.Kind() == reflect.Slice || t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct && t != timeType && isExported(t.Name()) {
		doc.Components.Schemas[t.Name()] = schemaFor(t)
	}
	return schema
}

func schemaFor(t reflect.Type) *openapi3.SchemaRef {
	if t == timeType {
		return &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()}
	}

	switch t.Kind() {
	case reflect.Pointer:
		ref := schemaFor(t.Elem())
		ref.Value.Nullable = true
		return ref
	case reflect.String:
		return &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}
	case reflect.Bool:
		return &openapi3.SchemaRef{Value: openapi3.NewBoolSchema()}
	case reflect.Int, reflect.Int32:
		return &openapi3.SchemaRef{Value: openapi3.NewInt32Schema()}
	case reflect.Int64:
		return &openapi3.SchemaRef{Value: openapi3.NewInt64Schema()}
	case reflect.Float32, reflect.Float64:
		return &openapi3.SchemaRef{Value: openapi3.NewFloat64Schema()}
	case reflect.Slice, reflect.Array:
		return &openapi3.SchemaRef{Value: openapi3.NewArraySchema().WithItems(schemaFor(t.Elem()).Value)}
	case reflect.Map:
		return &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}
	case reflect.Struct:
		return structSchema(t)
	default:
		return &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}
	}
}

func structSchema(t reflect.Type) *openapi3.SchemaRef {
	schema := openapi3.NewObjectSchema()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = field.Name
		}

		rules := field.Tag.Get("validate")
		prop := schemaFor(field.Type)
		applyValidation(prop.Value, rules)
		schema.Properties[name] = prop

		optional := strings.Contains(opts, "omitempty") || field.Type.Kind() == reflect.Pointer
		if !optional || requiredRule(rules) {
			schema.Required = append(schema.Required, name)
		}
	}
	return &openapi3.SchemaRef{Value: schema}
}

// applyValidation mirrors the validator tags that have an OpenAPI
// counterpart.
func applyValidation(s *openapi3.Schema, tag string) {
	for _, rule := range strings.Split(tag, ",") {
		if rule == "dive" {
			return
		}
		key, param, _ := strings.Cut(rule, "=")
		switch key {
		case "oneof":
			for _, v := range strings.Fields(param) {
				s.Enum = append(s.Enum, v)
			}
		case "max":
			n, err := strconv.ParseUint(param, 10, 64)
			if err != nil {
				continue
			}
			switch {
			case s.Type.Is(openapi3.TypeString):
				s.MaxLength = &n
			case s.Type.Is(openapi3.TypeArray):
				s.MaxItems = &n
			}
		case "min":
			n, err := strconv.ParseUint(param, 10, 64)
			if err != nil {
				continue
			}
			switch {
			case s.Type.Is(openapi3.TypeString):
				s.MinLength = n
			case s.Type.Is(openapi3.TypeArray):
				s.MinItems = n
			}
		case "gte", "gt":
			f, err := strconv.ParseFloat(param, 64)
			if err != nil {
				continue
			}
			s.Min = &f
			s.ExclusiveMin = key == "gt"
		}
	}
}

func requiredRule(tag string) bool {
	for _, rule := range strings.Split(tag, ",") {
		switch rule {
		case "required":
			return true
		case "dive":
			return false
		}
	}
	return false
}

func operationID(route Route) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(route.Method))
	for _, part := range strings.FieldsFunc(route.Path, func(r rune) bool { return r == '/' || r == '.' }) {
		part = strings.Trim(part, "{}")
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}

func isExported(name string) bool {
	return name != "" && strings.ToUpper(name[:1]) == name[:1]
}
