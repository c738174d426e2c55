package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Diário de Turma API",
        "description": "Attendance, homework and backpack tracking for classroom dashboards",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Teacher sign-in"},
        {"name": "Classes", "description": "Class management"},
        {"name": "Students", "description": "Per-class rosters"},
        {"name": "Records", "description": "Daily attendance records"},
        {"name": "Statistics", "description": "Derived percentages and chart series"},
        {"name": "Reports", "description": "Async statistics exports"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate teacher",
                "responses": {
                    "200": {"description": "Token issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/v1/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List classes of a school year",
                "responses": {
                    "200": {"description": "Ordered class summaries"}
                }
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Create class",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/api/v1/classes/{classId}/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students of a class",
                "responses": {
                    "200": {"description": "Roster"}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Enroll student",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/api/v1/classes/{classId}/records/{date}": {
            "get": {
                "tags": ["Records"],
                "summary": "Class roster with the day's records",
                "responses": {
                    "200": {"description": "Roster entries"}
                }
            }
        },
        "/api/v1/classes/{classId}/students/{studentId}/records/{date}": {
            "put": {
                "tags": ["Records"],
                "summary": "Save a record, merging into whatever is stored",
                "responses": {
                    "200": {"description": "Stored record"}
                }
            }
        },
        "/api/v1/stats/year": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Year-wide statistics with per-class comparison",
                "responses": {
                    "200": {"description": "Year statistics"}
                }
            }
        },
        "/api/v1/stats/month": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Monthly averages with daily series",
                "responses": {
                    "200": {"description": "Monthly statistics"}
                }
            }
        },
        "/api/v1/stats/trend": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Trailing 30-day daily series",
                "responses": {
                    "200": {"description": "Daily series"}
                }
            }
        },
        "/api/v1/stats/classes/{classId}": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Full-history statistics for one class",
                "responses": {
                    "200": {"description": "Class statistics"}
                }
            }
        },
        "/api/v1/stats/classes/{classId}/students/{studentId}": {
            "get": {
                "tags": ["Statistics"],
                "summary": "One student's statistics and chart series",
                "responses": {
                    "200": {"description": "Student statistics"}
                }
            }
        },
        "/api/v1/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a statistics export",
                "responses": {
                    "202": {"description": "Job accepted"}
                }
            }
        },
        "/api/v1/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "responses": {
                    "200": {"description": "Job status"}
                }
            }
        },
        "/api/v1/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished export",
                "responses": {
                    "200": {"description": "Export file"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
