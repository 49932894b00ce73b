package controllers

import khttp "github.com/go-kratos/kratos/v2/transport/http"

// RegisterHTTPRoutes 将 handler 绑定到对应路由。
func RegisterHTTPRoutes(srv *khttp.Server, upload *UploadHandler, query *UploadQueryHandler, internal *InternalHandler) {
	r := srv.Route("/")
	r.POST("/upload", upload.SubmitUpload)

	r.GET("/videos", query.ListUploads)
	r.GET("/videos/progress/{uploadId}", query.GetProgress)
	r.GET("/videos/{id}", query.GetUpload)

	r.GET("/internal/videos/{id}", internal.GetUpload)
	r.PUT("/internal/videos/{id}", internal.ApplyCallback)
	r.GET("/internal/owners/by-email/{email}", internal.GetOwnerTokens)
	r.GET("/internal/users/by-email/{email}", internal.GetOwnerTokens)
}
