package utils

import (
	"github.com/kataras/iris/v12"
)

type PageMeta struct {
	Skip  int   `json:"skip"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// JSONPage writes a paginated collection with its skip/limit window and total.
func JSONPage(ctx iris.Context, data interface{}, skip, limit int, total int64) {
	ctx.JSON(iris.Map{
		"data": data,
		"meta": PageMeta{Skip: skip, Limit: limit, Total: total},
	})
}
