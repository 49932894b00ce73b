package controllers

// Operation 名称用于中间件 selector 识别路由。
const (
	UserOperationPrefix     = "/uploads.v1.UploadService/"
	InternalOperationPrefix = "/uploads.v1.InternalService/"

	OperationSubmitUpload = UserOperationPrefix + "SubmitUpload"
	OperationListUploads  = UserOperationPrefix + "ListUploads"
	OperationGetUpload    = UserOperationPrefix + "GetUpload"
	OperationGetProgress  = UserOperationPrefix + "GetProgress"

	OperationInternalGetUpload   = InternalOperationPrefix + "GetUpload"
	OperationInternalOwnerTokens = InternalOperationPrefix + "GetOwnerTokens"
	OperationInternalCallback    = InternalOperationPrefix + "ApplyCallback"
)
