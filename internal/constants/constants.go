package constants

const (
	ZiteboardSessions = "ziteboard-sessions"

	PathCreateBoard = "/api/createboard"
	PathUpdateBoard = "/api/updateboard"

	FormParamAPIKey               = "api_key"
	FormParamBoardID              = "bid"
	FormParamTokenExpiryInSeconds = "token_expiry_in_seconds"
	FormParamViewOnly             = "viewonly"

	DefaultTokenExpiryInSeconds = 3600 * 24 * 365

	ConnectTimeoutSeconds = 3
	RequestTimeoutSeconds = 10
)

const (
	QueryParamCreate = "create"

	HeaderRequestID = "X-Request-ID"
)
