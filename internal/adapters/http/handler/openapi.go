package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

type openAPI struct {
	OpenAPI    string              `yaml:"openapi"`
	Info       openAPIInfo         `yaml:"info"`
	Paths      map[string]pathItem `yaml:"paths"`
	Components components          `yaml:"components"`
}

type openAPIInfo struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

type pathItem map[string]operation

type operation struct {
	Summary     string              `yaml:"summary"`
	OperationID string              `yaml:"operationId"`
	Parameters  []parameter         `yaml:"parameters,omitempty"`
	RequestBody *requestBody        `yaml:"requestBody,omitempty"`
	Responses   map[string]response `yaml:"responses"`
}

type parameter struct {
	Name     string `yaml:"name"`
	In       string `yaml:"in"`
	Required bool   `yaml:"required"`
	Schema   schema `yaml:"schema"`
}

type requestBody struct {
	Required bool                 `yaml:"required"`
	Content  map[string]mediaType `yaml:"content"`
}

type response struct {
	Description string               `yaml:"description"`
	Content     map[string]mediaType `yaml:"content,omitempty"`
}

type mediaType struct {
	Schema schema `yaml:"schema"`
}

type schema struct {
	Ref        string            `yaml:"$ref,omitempty"`
	Type       string            `yaml:"type,omitempty"`
	Format     string            `yaml:"format,omitempty"`
	Items      *schema           `yaml:"items,omitempty"`
	Required   []string          `yaml:"required,omitempty"`
	Properties map[string]schema `yaml:"properties,omitempty"`
}

type components struct {
	Schemas map[string]schema `yaml:"schemas"`
}

func ref(name string) schema {
	return schema{Ref: "#/components/schemas/" + name}
}

func jsonContent(s schema) map[string]mediaType {
	return map[string]mediaType{"application/json": {Schema: s}}
}

func errorResponseOf(description string) response {
	return response{Description: description, Content: jsonContent(ref("Error"))}
}

func openAPIDocument() openAPI {
	idParam := []parameter{{Name: "id", In: "path", Required: true, Schema: schema{Type: "integer", Format: "int64"}}}
	body := &requestBody{Required: true, Content: jsonContent(ref("EmployeeRequest"))}
	employeeFields := map[string]schema{
		"firstName":  {Type: "string"},
		"lastName":   {Type: "string"},
		"email":      {Type: "string", Format: "email"},
		"department": {Type: "string"},
		"position":   {Type: "string"},
		"hireDate":   {Type: "string", Format: "date"},
		"active":     {Type: "boolean"},
	}
	responseFields := map[string]schema{
		"id":      {Type: "integer", Format: "int64"},
		"version": {Type: "integer", Format: "int64"},
	}
	for k, v := range employeeFields {
		responseFields[k] = v
	}

	return openAPI{
		OpenAPI: "3.0.3",
		Info:    openAPIInfo{Title: "Employee Records API", Version: "1.0.0"},
		Paths: map[string]pathItem{
			"/api/employees": {
				"get": {
					Summary:     "List all employees ordered by id",
					OperationID: "listEmployees",
					Responses: map[string]response{
						"200": {Description: "employees", Content: jsonContent(schema{Type: "array", Items: &schema{Ref: "#/components/schemas/Employee"}})},
						"500": errorResponseOf("store failure"),
					},
				},
				"post": {
					Summary:     "Create an employee",
					OperationID: "createEmployee",
					RequestBody: body,
					Responses: map[string]response{
						"201": {Description: "created", Content: jsonContent(ref("Employee"))},
						"400": errorResponseOf("validation failed"),
						"409": errorResponseOf("email already exists"),
					},
				},
			},
			"/api/employees/{id}": {
				"get": {
					Summary:     "Get an employee",
					OperationID: "getEmployee",
					Parameters:  idParam,
					Responses: map[string]response{
						"200": {Description: "employee", Content: jsonContent(ref("Employee"))},
						"400": errorResponseOf("invalid id"),
						"404": errorResponseOf("not found"),
					},
				},
				"put": {
					Summary:     "Replace all fields of an employee",
					OperationID: "updateEmployee",
					Parameters:  idParam,
					RequestBody: body,
					Responses: map[string]response{
						"200": {Description: "updated", Content: jsonContent(ref("Employee"))},
						"400": errorResponseOf("validation failed"),
						"404": errorResponseOf("not found"),
						"409": errorResponseOf("email already exists or version conflict"),
					},
				},
				"delete": {
					Summary:     "Delete an employee",
					OperationID: "deleteEmployee",
					Parameters:  idParam,
					Responses: map[string]response{
						"204": {Description: "deleted"},
						"400": errorResponseOf("invalid id"),
						"404": errorResponseOf("not found"),
					},
				},
			},
		},
		Components: components{Schemas: map[string]schema{
			"EmployeeRequest": {
				Type:       "object",
				Required:   []string{"firstName", "lastName", "email", "department", "position", "hireDate", "active"},
				Properties: employeeFields,
			},
			"Employee": {Type: "object", Properties: responseFields},
			"Error": {
				Type:       "object",
				Required:   []string{"error"},
				Properties: map[string]schema{"error": {Type: "string"}},
			},
		}},
	}
}

// RenderOpenAPI は API 定義を YAML で出力します。
func RenderOpenAPI() ([]byte, error) {
	out, err := yaml.Marshal(openAPIDocument())
	if err != nil {
		return nil, fmt.Errorf("render openapi: %w", err)
	}
	return out, nil
}

// OpenAPI は起動時に描画した API 定義を返すハンドラーを生成します。
func OpenAPI() (gin.HandlerFunc, error) {
	doc, err := RenderOpenAPI()
	if err != nil {
		return nil, err
	}
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", doc)
	}, nil
}
