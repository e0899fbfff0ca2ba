package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"comet/internal/apperr"
	"comet/internal/feed"
	"comet/internal/loader"
	"comet/internal/middleware"
	"comet/internal/services"
	"comet/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// respondError writes err as {"error": msg}. Untyped errors are attached to
// the context for the request logger and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// bind decodes the JSON body into obj and runs its validate tags. An empty
// body is validated as the zero value.
func bind(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(obj)
	}
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondError(c, apperr.Validation(utils.ValidationMessage(err)))
		} else {
			respondError(c, apperr.Validation("invalid request body"))
		}
		return false
	}
	return true
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func loaders(c *gin.Context) *loader.Loaders {
	return loader.FromContext(c.Request.Context())
}

func viewerID(c *gin.Context) string {
	return middleware.CurrentUserID(c)
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(key + " must be an integer")
	}
	return n, nil
}

func pageQuery(c *gin.Context) (page, size int, err error) {
	if page, err = intQuery(c, "page"); err != nil {
		return 0, 0, err
	}
	if size, err = intQuery(c, "page_size"); err != nil {
		return 0, 0, err
	}
	page, size = feed.ClampPage(page, size)
	return page, size, nil
}

// listQuery reads page, page_size, sort, time, filter and types. Unset
// sort and time fall back to defSort and defWindow.
func listQuery(c *gin.Context, defSort feed.Sort, defWindow feed.Window) (feed.Query, error) {
	var q feed.Query
	var err error
	if q.Page, q.PageSize, err = pageQuery(c); err != nil {
		return q, err
	}
	if q.Sort, err = feed.ParseSort(c.Query("sort"), defSort); err != nil {
		return q, err
	}
	if q.Window, err = feed.ParseWindow(c.Query("time"), defWindow); err != nil {
		return q, err
	}
	if q.Filter, err = feed.ParseFilter(c.Query("filter")); err != nil {
		return q, err
	}
	if q.Types, err = feed.ParseTypes(c.Query("types")); err != nil {
		return q, err
	}
	q.Search = c.Query("search")
	return q, nil
}

// readImage reads the multipart "file" field, refusing anything larger
// than services.MaxImageSize.
func readImage(c *gin.Context) ([]byte, string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, "", apperr.Validation("file is required")
	}
	if fh.Size > services.MaxImageSize {
		return nil, "", apperr.Validation("Image must be smaller than 4MB")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, services.MaxImageSize+1))
	if err != nil {
		return nil, "", err
	}
	return data, fh.Filename, nil
}
