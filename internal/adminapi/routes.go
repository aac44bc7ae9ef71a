package adminapi

import (
	"github.com/zeromicro/go-zero/rest"
)

// RegisterHandlers wires every admin endpoint of spec §6 onto server,
// mirroring the teacher's handler.RegisterHandlers layering.
func RegisterHandlers(server *rest.Server, svcCtx *ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  "POST",
				Path:    "/v1/schedulers",
				Handler: RegisterSchedulerHandler(svcCtx),
			},
			{
				Method:  "GET",
				Path:    "/v1/schedulers",
				Handler: ListSchedulersHandler(svcCtx),
			},
			{
				Method:  "GET",
				Path:    "/v1/schedulers/default",
				Handler: GetDefaultSchedulerHandler(svcCtx),
			},
			{
				Method:  "PUT",
				Path:    "/v1/schedulers/default",
				Handler: SetDefaultSchedulerHandler(svcCtx),
			},
			{
				Method:  "PUT",
				Path:    "/v1/connections/:id/scheduler",
				Handler: BindConnectionSchedulerHandler(svcCtx),
			},
			{
				Method:  "DELETE",
				Path:    "/v1/connections/:id/scheduler",
				Handler: UnbindConnectionSchedulerHandler(svcCtx),
			},
			{
				Method:  "GET",
				Path:    "/v1/decisions/stream",
				Handler: DecisionStreamHandler(svcCtx),
			},
		},
	)
}
