package bookstore

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/eringen/bookstore/api"
	"github.com/eringen/bookstore/form"
	"github.com/eringen/bookstore/meta"
	"github.com/eringen/bookstore/metrics"
	"github.com/eringen/bookstore/model"
	"github.com/eringen/bookstore/render"
)

const maxFormBody = 1 << 20

func (a *App) handlePage(c echo.Context) error {
	r, err := a.Meta.Renderer()
	if err != nil {
		return err
	}
	ref := c.QueryParam("ref")
	if ref == "" {
		ref = render.DefaultRef
	}
	if _, err := r.Tree().Resolve(meta.Path{ref}); err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	pass := r.NewPass(render.WithCSRF(CsrfToken(c)))
	return Render(c, pass.Page(a.pageTitle(ref), ref))
}

// handleSubmit collects a posted form, applies the required-field checks
// and hands the result to the dispatcher. The page holding the form is
// rendered again with the submitted values, errors and outcome.
func (a *App) handleSubmit(c echo.Context) error {
	r, err := a.Meta.Renderer()
	if err != nil {
		return err
	}
	path := meta.ParseID(c.QueryParam("path"))
	node, err := r.Tree().Resolve(path)
	if err != nil || node.Kind() != meta.KindForm {
		return echo.NewHTTPError(http.StatusBadRequest, "path does not name a form")
	}
	formID := path.ID()

	// Rendering the form registers its controls.
	probe := r.NewPass()
	if _, err := probe.Fragment(path); err != nil {
		return err
	}

	pairs, err := submittedPairs(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result := form.Collect(pairs, probe.IsMulti, "_csrf")
	values := result.Values()

	opts := []render.PassOption{render.WithCSRF(CsrfToken(c)), render.WithValues(values)}
	status := http.StatusOK
	if errs := probe.Check(values); len(errs) > 0 {
		metrics.ObserveSubmission(node.Action, true)
		status = http.StatusUnprocessableEntity
		opts = append(opts,
			render.WithErrors(errs),
			render.WithNotice(formID, render.Notice{Message: "Please correct the errors below.", Error: true}),
		)
	} else {
		st := form.State{CartID: SessionCart(c)}
		before := st.CartID
		reply, err := a.dispatcher.Dispatch(c.Request().Context(), node.Action, result, &st)
		if err != nil {
			return fmt.Errorf("dispatch %s: %w", node.Action, err)
		}
		if st.CartID != before {
			if err := setSessionCart(c, st.CartID); err != nil {
				return err
			}
		}
		metrics.ObserveSubmission(node.Action, reply.Failed)
		if reply.Failed {
			status = http.StatusUnprocessableEntity
		}
		opts = append(opts,
			render.WithErrors(reply.Fields),
			render.WithNotice(formID, render.Notice{Message: reply.Message, Error: reply.Failed, Lines: reply.Lines}),
		)
	}

	ref := path.Normalize()[0]
	return RenderStatus(c, status, r.NewPass(opts...).Page(a.pageTitle(ref), ref))
}

// submittedPairs returns the posted fields. When middleware has already
// parsed the body, fields come back grouped by name with each name's
// values in submission order.
func submittedPairs(c echo.Context) ([]form.Pair, error) {
	req := c.Request()
	if req.PostForm != nil {
		return form.PairsFromValues(req.PostForm), nil
	}
	body, err := io.ReadAll(io.LimitReader(req.Body, maxFormBody))
	if err != nil {
		return nil, err
	}
	return form.ParsePairs(string(body))
}

func (a *App) pageTitle(ref string) string {
	if ref == render.DefaultRef {
		return a.Config.Name
	}
	r, size := utf8.DecodeRuneInString(ref)
	return a.Config.Name + " - " + string(unicode.ToUpper(r)) + ref[size:]
}

func (a *App) handleSitemap(c echo.Context) error {
	refs, err := a.Meta.Refs()
	if err != nil {
		return err
	}
	return a.renderSitemap(c, refs)
}

func (a *App) handleFeed(c echo.Context) error {
	books, err := a.Model.RecentBooks(c.Request().Context(), feedSize)
	if err != nil {
		return err
	}
	return a.renderRSS(c, books)
}

func isAPI(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == api.Prefix || strings.HasPrefix(path, api.Prefix+"/")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if isAPI(c) {
		a.apiError(err, he, c)
		return
	}
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, render.MessagePage("Not Found", "The page you requested does not exist."))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, render.MessagePage("Server Error", "Something went wrong."))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

func (a *App) apiError(err error, he *echo.HTTPError, c echo.Context) {
	req := c.Request()
	switch {
	case he == nil:
		_ = api.WriteError(c, err)
	case he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed:
		env := api.NotFound(req.Method, req.RequestURI)
		_ = c.JSON(env.Status, env)
	case he.Code >= 500:
		_ = api.WriteError(c, err)
	default:
		env := api.Envelope{Status: he.Code, Errors: []model.Error{{
			Code:    model.CodeFormError,
			Message: fmt.Sprint(he.Message),
		}}}
		_ = c.JSON(env.Status, env)
	}
}
