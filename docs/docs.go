// Package docs 由 swag init 生成，修改接口注释后重新执行 `swag init -g main.go`
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["系统"],
                "summary": "健康检查",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/util.Response"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            }
        },
        "/api/progress": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["学习进度"],
                "summary": "我的全部进度",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.ProgressView"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["学习进度"],
                "summary": "上报观看进度",
                "parameters": [
                    {"description": "观看快照", "name": "progress", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.ProgressUpdate"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "properties": {"completed": {"type": "boolean"}}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/util.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            }
        },
        "/api/progress/{moduleId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["学习进度"],
                "summary": "获取模块进度",
                "parameters": [
                    {"type": "integer", "description": "模块ID", "name": "moduleId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ProgressView"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            }
        },
        "/api/evaluation/{moduleId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["测评"],
                "summary": "获取模块测评",
                "parameters": [
                    {"type": "integer", "description": "模块ID", "name": "moduleId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.DefinitionView"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            }
        },
        "/api/evaluation/{moduleId}/attempts": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["测评"],
                "summary": "我的测评记录",
                "parameters": [
                    {"type": "integer", "description": "模块ID", "name": "moduleId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Attempt"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["测评"],
                "summary": "提交测评",
                "parameters": [
                    {"type": "integer", "description": "模块ID", "name": "moduleId", "in": "path", "required": true},
                    {"description": "作答", "name": "attempt", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.SubmitRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.AttemptResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/util.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/util.Response"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            }
        },
        "/api/evaluation/{moduleId}/attempts/{attemptNumber}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["测评"],
                "summary": "测评记录详情",
                "parameters": [
                    {"type": "integer", "description": "模块ID", "name": "moduleId", "in": "path", "required": true},
                    {"type": "integer", "description": "尝试编号", "name": "attemptNumber", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Attempt"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            }
        },
        "/api/admin/evaluation/{moduleId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["测评管理"],
                "summary": "获取测评定义（编辑）",
                "parameters": [
                    {"type": "integer", "description": "模块ID", "name": "moduleId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.DefinitionView"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["测评管理"],
                "summary": "替换测评定义",
                "parameters": [
                    {"type": "integer", "description": "模块ID", "name": "moduleId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.DefinitionView"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/util.Response"}}
                }
            }
        }
    },
    "definitions": {
        "util.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"},
                "error": {"type": "string"},
                "data": {}
            }
        },
        "service.ProgressUpdate": {
            "type": "object",
            "required": ["moduleId"],
            "properties": {
                "moduleId": {"type": "integer"},
                "watchedSeconds": {"type": "integer"},
                "percentWatched": {"type": "number"}
            }
        },
        "service.SubmitRequest": {
            "type": "object",
            "properties": {
                "answers": {"type": "array", "items": {"type": "object"}},
                "timeSpentSeconds": {"type": "integer"}
            }
        },
        "model.ProgressView": {"type": "object"},
        "model.DefinitionView": {"type": "object"},
        "model.AttemptResult": {"type": "object"},
        "model.Attempt": {"type": "object"}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "学习进度与测评 API",
	Description:      "企业培训平台的观看进度上报、模块测评与完成判定服务。",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
