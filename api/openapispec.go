/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/tact-funcgen/codegen"
	"github.com/icon-project/tact-funcgen/service"
	"github.com/icon-project/tact-funcgen/storage"
	"github.com/icon-project/tact-funcgen/types"
)

const (
	openapi3Version     = "3.0.3"
	infoTitlePrefix     = "Tact FunC "
	infoTitleSuffix     = " - OpenAPI " + openapi3Version
	infoDefaultVersion  = "0.1.0"
	tagReceive          = "Receive"
	tagGetter           = "Getter"
	tagGeneral          = "General"
	schemaRefPrefix     = "#/components/schemas/"
	schemaErrorResponse = "ErrorResponse"
	schemaCompileResult = "CompileResult"
	schemaCellResult    = "CellResult"
	extensionOpcode     = "x-opcode"
	extensionExternal   = "x-external"
	extensionGetter     = "x-method"
)

var (
	infoLicenseApache = &openapi3.License{
		Name: "Apache 2.0",
		URL:  "http://www.apache.org/licenses/LICENSE-2.0.html",
	}
	integerSchema = openapi3.NewOneOfSchema(
		openapi3.NewStringSchema().WithPattern("^(0x|\\-0x)(0|[1-9a-f][0-9a-f]*)$"),
		openapi3.NewStringSchema().WithPattern("^(|\\-)(0|[1-9][0-9]*)$"),
		openapi3.NewIntegerSchema(),
	)
	booleanSchema = openapi3.NewBoolSchema()
	addressSchema = openapi3.NewStringSchema().
			WithPattern("^-?[0-9]+:[0-9a-f]{64}$").
			WithFormat(types.TAddress.String())
	cellSchema = openapi3.NewStringSchema().
			WithPattern("^(0x)?([0-9a-f][0-9a-f])*$").
			WithFormat(types.TCell.String())
	sliceSchema = openapi3.NewStringSchema().
			WithPattern("^(0x)?([0-9a-f][0-9a-f])*$").
			WithFormat(types.TSlice.String())
	defaultSchemas = map[string]*openapi3.Schema{
		schemaErrorResponse:     MustGenerateSchema(&ErrorResponse{}),
		types.TInt.String():     integerSchema,
		types.TBool.String():    booleanSchema,
		types.TAddress.String(): addressSchema,
		types.TCell.String():    cellSchema,
		types.TSlice.String():   sliceSchema,
	}
)

func MustGenerateSchema(v interface{}) *openapi3.Schema {
	ref, err := openapi3gen.NewSchemaRefForValue(v, nil)
	if err != nil {
		log.Panicf("%+v", err)
	}
	return ref.Value
}

func NewSchemas() openapi3.Schemas {
	schemas := make(openapi3.Schemas)
	for k, s := range defaultSchemas {
		schemas[k] = s.NewRef()
	}
	return schemas
}

func NewTag(name, desc string) *openapi3.Tag {
	return &openapi3.Tag{
		Name:        name,
		Description: desc,
	}
}

func refOf(name string, schemas openapi3.Schemas) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef(schemaRefPrefix+name, schemas[name].Value)
}

// FieldTypeToSchemaRef returns the schema of values of ft. Structured types
// are referenced by name and must be registered by StructToSchema.
func FieldTypeToSchemaRef(ft *types.FieldType, schemas openapi3.Schemas) *openapi3.SchemaRef {
	b := ft.Base()
	var ref *openapi3.SchemaRef
	switch b.Tag {
	case types.TUint, types.TInt, types.TCoins:
		ref = refOf(types.TInt.String(), schemas)
	case types.TBool:
		ref = refOf(types.TBool.String(), schemas)
	case types.TAddress:
		ref = refOf(types.TAddress.String(), schemas)
	case types.TCell:
		ref = refOf(types.TCell.String(), schemas)
	case types.TSlice:
		ref = refOf(types.TSlice.String(), schemas)
	case types.TStruct:
		ref = openapi3.NewSchemaRef(schemaRefPrefix+b.Struct.Name, nil)
		if s, ok := schemas[b.Struct.Name]; ok {
			ref.Value = s.Value
		}
	default:
		s := openapi3.NewObjectSchema()
		s.Description = b.Tag.String()
		return s.NewRef()
	}
	if ft.IsOptional() {
		s := openapi3.NewSchema()
		s.AllOf = openapi3.SchemaRefs{ref}
		s.Nullable = true
		return s.NewRef()
	}
	return ref
}

// StructToSchema registers the schema of t. Dependencies must be
// registered before.
func StructToSchema(t *types.TypeDescriptor, schemas openapi3.Schemas) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	for _, f := range t.Fields {
		fs := openapi3.NewSchema()
		fs.AllOf = openapi3.SchemaRefs{FieldTypeToSchemaRef(f.Type.Base(), schemas)}
		fs.Description = f.Type.String()
		fs.Nullable = f.Type.IsOptional()
		if f.HasDefault() {
			fs.Default = f.Default
		}
		schema.WithProperty(f.Name, fs)
		if !f.Type.IsOptional() && !f.HasDefault() {
			schema.Required = append(schema.Required, f.Name)
		}
	}
	schema.Title = t.Name
	schema.Description = string(t.Kind)
	if t.IsMessage() {
		schema.Extensions = map[string]interface{}{
			extensionOpcode: fmt.Sprintf("0x%08x", t.Opcode),
		}
	}
	schemas[t.Name] = schema.NewRef()
	return schema
}

// ParamTypeToSchemaRef maps a parameter of a target-language function.
func ParamTypeToSchemaRef(name string, p *types.Program, schemas openapi3.Schemas) *openapi3.SchemaRef {
	if t, ok := p.Type(name); ok {
		return openapi3.NewSchemaRef(schemaRefPrefix+t.Name, schemas[t.Name].Value)
	}
	switch strings.TrimSuffix(name, "?") {
	case "int":
		return refOf(types.TInt.String(), schemas)
	case "cell":
		return refOf(types.TCell.String(), schemas)
	case "slice":
		return refOf(types.TSlice.String(), schemas)
	default:
		s := openapi3.NewSchema()
		s.Description = name
		return s.NewRef()
	}
}

func NewSuccessResponseWithSchemaRef(sr *openapi3.SchemaRef) *openapi3.Response {
	return openapi3.NewResponse().WithDescription("Successful operation").
		WithContent(openapi3.NewContentWithJSONSchemaRef(sr))
}

func NewErrorResponse(schemas openapi3.Schemas) *openapi3.Response {
	return openapi3.NewResponse().WithDescription("Failed operation").
		WithContent(openapi3.NewContentWithJSONSchemaRef(refOf(schemaErrorResponse, schemas)))
}

func ResponsesWithResponse(m openapi3.Responses, status int, resp *openapi3.Response) openapi3.Responses {
	if m == nil {
		m = make(openapi3.Responses)
	}
	m[strconv.FormatInt(int64(status), 10)] = &openapi3.ResponseRef{
		Value: resp,
	}
	return m
}

func NewOpenAPISpec(name string) openapi3.T {
	return openapi3.T{
		OpenAPI: openapi3Version,
		Info: &openapi3.Info{
			Title:   infoTitlePrefix + name + infoTitleSuffix,
			License: infoLicenseApache,
			Version: infoDefaultVersion,
		},
		Tags: openapi3.Tags{
			NewTag(tagReceive, "Message receiver"),
			NewTag(tagGetter, "Get method"),
		},
		Paths: make(openapi3.Paths),
		Components: &openapi3.Components{
			Schemas: NewSchemas(),
		},
	}
}

// NewContractOpenAPISpec describes the message interface of a contract:
// one schema per structured type, one path per receiver and get method.
func NewContractOpenAPISpec(u *types.Universe, name string) (*openapi3.T, error) {
	p, err := types.Resolve(u)
	if err != nil {
		return nil, err
	}
	cd, ok := p.Contract(name)
	if !ok {
		return nil, codegen.ErrorCodeContractNotFound.Errorf("contract %s not found", name)
	}
	oas := NewOpenAPISpec(name)
	schemas := oas.Components.Schemas
	sorted, err := storage.SortTypes(p)
	if err != nil {
		return nil, err
	}
	for _, t := range sorted.Types {
		StructToSchema(t, schemas)
	}
	for _, r := range cd.Receivers {
		op := &openapi3.Operation{
			Tags:        []string{tagReceive},
			OperationID: "receive" + r.Message.Name,
			Summary:     r.Handler,
			RequestBody: &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().WithRequired(true).WithContent(
					openapi3.NewContentWithJSONSchemaRef(
						openapi3.NewSchemaRef(schemaRefPrefix+r.Message.Name, schemas[r.Message.Name].Value))),
			},
			Responses: ResponsesWithResponse(
				ResponsesWithResponse(nil, http.StatusOK,
					NewSuccessResponseWithSchemaRef(openapi3.NewSchemaRef(schemaRefPrefix+cd.Storage.Name, schemas[cd.Storage.Name].Value))),
				http.StatusBadRequest, NewErrorResponse(schemas)),
		}
		op.Extensions = map[string]interface{}{
			extensionOpcode:   fmt.Sprintf("0x%08x", r.Message.Opcode),
			extensionExternal: r.External,
		}
		oas.Paths["/"+cd.Name+"/"+r.Message.Name] = &openapi3.PathItem{Post: op}
	}
	for _, fs := range cd.Functions {
		if !fs.Getter {
			continue
		}
		method := strings.TrimPrefix(fs.Name, cd.Name+"_")
		op := &openapi3.Operation{
			Tags:        []string{tagGetter},
			OperationID: method,
			Summary:     fs.Name,
			Responses: ResponsesWithResponse(
				ResponsesWithResponse(nil, http.StatusOK,
					NewSuccessResponseWithSchemaRef(ParamTypeToSchemaRef(fs.Returns, p, schemas))),
				http.StatusBadRequest, NewErrorResponse(schemas)),
		}
		for _, param := range fs.Params {
			op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
				Value: openapi3.NewQueryParameter(param.Name).
					WithRequired(true).
					WithSchema(ParamTypeToSchemaRef(param.Type, p, schemas).Value),
			})
		}
		op.Extensions = map[string]interface{}{
			extensionGetter: method,
		}
		oas.Paths["/"+cd.Name+"/"+method] = &openapi3.PathItem{Get: op}
	}
	return &oas, nil
}

// NewServerOpenAPISpec describes the endpoints of Server.
func NewServerOpenAPISpec() *openapi3.T {
	oas := NewOpenAPISpec("Server")
	oas.Tags = openapi3.Tags{NewTag(tagGeneral, "General purpose")}
	schemas := oas.Components.Schemas
	schemas[schemaCompileResult] = MustGenerateSchema(&service.CompileResult{}).NewRef()
	schemas[schemaCellResult] = MustGenerateSchema(&service.CellResult{}).NewRef()
	post := func(id, summary string, req interface{}, resp *openapi3.SchemaRef) *openapi3.PathItem {
		return &openapi3.PathItem{
			Post: &openapi3.Operation{
				Tags:        []string{tagGeneral},
				OperationID: id,
				Summary:     summary,
				RequestBody: &openapi3.RequestBodyRef{
					Value: openapi3.NewRequestBody().WithRequired(true).WithContent(
						openapi3.NewContentWithJSONSchema(MustGenerateSchema(req))),
				},
				Responses: ResponsesWithResponse(
					ResponsesWithResponse(nil, http.StatusOK, NewSuccessResponseWithSchemaRef(resp)),
					http.StatusBadRequest, NewErrorResponse(schemas)),
			},
		}
	}
	object := openapi3.NewObjectSchema().NewRef()
	oas.Paths[GroupUrlApi+UrlCompile] = post("compile", "Generate the module of a contract",
		&compileRequestSchema{}, refOf(schemaCompileResult, schemas))
	oas.Paths[GroupUrlApi+UrlLayout] = post("layout", "Storage layout of every type",
		&universeRequestSchema{}, openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema()).NewRef())
	oas.Paths[GroupUrlApi+UrlInit] = post("init", "Initial data of a contract",
		&initRequestSchema{}, refOf(schemaCellResult, schemas))
	oas.Paths[GroupUrlApi+UrlPack] = post("pack", "Encode a value",
		&packRequestSchema{}, refOf(schemaCellResult, schemas))
	oas.Paths[GroupUrlApi+UrlAbi] = post("abi", "OpenAPI document of a contract",
		&abiRequestSchema{}, object)
	return &oas
}

// request schemas where the universe is a free object.
type universeRequestSchema struct {
	Universe map[string]interface{} `json:"universe"`
}

type compileRequestSchema struct {
	Universe map[string]interface{} `json:"universe"`
	Contract string                 `json:"contract"`
	Abi      string                 `json:"abi,omitempty"`
	Scope    string                 `json:"scope,omitempty"`
}

type stackItemSchema struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

type initRequestSchema struct {
	Universe map[string]interface{} `json:"universe"`
	Contract string                 `json:"contract"`
	Stack    []stackItemSchema      `json:"stack"`
}

type packRequestSchema struct {
	Universe map[string]interface{} `json:"universe"`
	Type     string                 `json:"type"`
	Value    map[string]interface{} `json:"value"`
}

type abiRequestSchema struct {
	Universe map[string]interface{} `json:"universe"`
	Contract string                 `json:"contract"`
}
