package utils

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// UserIDParamMiddleware rejects requests whose named path parameter does not
// match the bearer identity.
func UserIDParamMiddleware(param string) iris.Handler {
	return func(ctx iris.Context) {
		claims := jwt.Get(ctx).(*AccessToken)
		if claims.ID.String() != ctx.Params().Get(param) {
			CreateForbidden(ctx)
			return
		}
		ctx.Next()
	}
}
