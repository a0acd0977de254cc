package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "用户注册",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
                "responses": {"200": {"description": "令牌", "schema": {"$ref": "#/definitions/AuthResponse"}}, "400": {"description": "参数错误", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "用户登录",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "令牌", "schema": {"$ref": "#/definitions/AuthResponse"}}, "401": {"description": "用户名或密码错误", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "刷新访问令牌",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}],
                "responses": {"200": {"description": "令牌", "schema": {"$ref": "#/definitions/AuthResponse"}}, "401": {"description": "令牌无效", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/auth/profile": {
            "get": {
                "tags": ["Auth"],
                "summary": "玩家资料和探索记录",
                "security": [{"Bearer": []}],
                "responses": {"200": {"description": "资料"}}
            },
            "put": {
                "tags": ["Auth"],
                "summary": "修改昵称",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/UpdateProfileRequest"}}],
                "responses": {"200": {"description": "用户"}}
            }
        },
        "/auth/password": {
            "put": {
                "tags": ["Auth"],
                "summary": "修改密码",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/UpdatePasswordRequest"}}],
                "responses": {"200": {"description": "成功"}}
            }
        },
        "/catalog": {
            "get": {"tags": ["Game"], "summary": "星球目录", "responses": {"200": {"description": "星球列表"}}}
        },
        "/shop": {
            "get": {"tags": ["Game"], "summary": "商店礼包", "responses": {"200": {"description": "礼包列表"}}}
        },
        "/game/state": {
            "get": {"tags": ["Game"], "summary": "当前进度", "security": [{"Bearer": []}], "responses": {"200": {"description": "进度"}}}
        },
        "/game/claim": {
            "get": {"tags": ["Game"], "summary": "今日是否可领取免费积分", "security": [{"Bearer": []}], "responses": {"200": {"description": "can_claim"}}},
            "post": {"tags": ["Game"], "summary": "领取每日免费积分", "security": [{"Bearer": []}], "responses": {"200": {"description": "结果", "schema": {"$ref": "#/definitions/Result"}}}}
        },
        "/game/travel": {
            "post": {
                "tags": ["Game"],
                "summary": "航行到指定星球，抵达后返回",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/BodyRequest"}}],
                "responses": {"200": {"description": "结果", "schema": {"$ref": "#/definitions/Result"}}, "503": {"description": "存档失败，已回滚", "schema": {"$ref": "#/definitions/Result"}}}
            }
        },
        "/game/explore": {
            "post": {
                "tags": ["Game"],
                "summary": "探索星球",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/BodyRequest"}}],
                "responses": {"200": {"description": "结果", "schema": {"$ref": "#/definitions/Result"}}}
            }
        },
        "/game/refuel": {
            "post": {
                "tags": ["Game"],
                "summary": "在星球加满燃料",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/BodyRequest"}}],
                "responses": {"200": {"description": "结果", "schema": {"$ref": "#/definitions/Result"}}}
            }
        },
        "/game/purchase/credits": {
            "post": {
                "tags": ["Game"],
                "summary": "购买积分",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/PurchaseRequest"}}],
                "responses": {"200": {"description": "结果", "schema": {"$ref": "#/definitions/Result"}}, "404": {"description": "礼包不存在"}}
            }
        },
        "/game/purchase/fuel": {
            "post": {
                "tags": ["Game"],
                "summary": "购买燃料，超出油箱的部分被截断",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/PurchaseRequest"}}],
                "responses": {"200": {"description": "结果", "schema": {"$ref": "#/definitions/Result"}}, "404": {"description": "礼包不存在"}}
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["username", "password", "confirm_password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "confirm_password": {"type": "string"},
                "nickname": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "RefreshTokenRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {"refresh_token": {"type": "string"}}
        },
        "UpdateProfileRequest": {
            "type": "object",
            "required": ["nickname"],
            "properties": {"nickname": {"type": "string"}}
        },
        "UpdatePasswordRequest": {
            "type": "object",
            "required": ["old_password", "new_password", "confirm_password"],
            "properties": {"old_password": {"type": "string"}, "new_password": {"type": "string"}, "confirm_password": {"type": "string"}}
        },
        "AuthResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "expires_in": {"type": "integer"},
                "token_type": {"type": "string"}
            }
        },
        "BodyRequest": {
            "type": "object",
            "required": ["body_id"],
            "properties": {"body_id": {"type": "string"}}
        },
        "PurchaseRequest": {
            "type": "object",
            "properties": {"pack_id": {"type": "string"}, "amount": {"type": "integer"}}
        },
        "Result": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "reason": {"type": "string"},
                "code": {"type": "integer"},
                "message": {"type": "string"},
                "warning": {"type": "string"},
                "data": {"type": "object"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "code": {"type": "integer"},
                "message": {"type": "string"},
                "details": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo API文档元信息
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Galaxy Explorer API",
	Description:      "星际探索游戏进度服务",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
