package handler

type ContextKey string

var (
	RoleCtxKey ContextKey = "role"
	SubCtxKey  ContextKey = "sub"
	MeCtx      ContextKey = "me"
	EntityCtx  ContextKey = "entity"
	OfficeCtx  ContextKey = "office"
)
