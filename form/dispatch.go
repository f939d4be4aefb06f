package form

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/eringen/bookstore/client"
)

// State is per-shopper data a dispatcher reads and may update.
type State struct {
	CartID string
}

// Reply is what a submission produced. Fields maps control names to error
// messages for their error slots.
type Reply struct {
	Message string
	Lines   []string
	Fields  map[string]string
	Failed  bool
}

// Dispatcher hands a collected form result to the action named by the
// form.
type Dispatcher interface {
	Dispatch(ctx context.Context, action string, r Result, st *State) (Reply, error)
}

// API is the part of the REST client the dispatcher uses.
type API interface {
	NewCart(ctx context.Context) (string, error)
	UpdateCartItem(ctx context.Context, cartID string, fields map[string]any) error
	GetCart(ctx context.Context, cartID string) (client.Cart, error)
	FindBooks(ctx context.Context, query url.Values) (client.BookPage, error)
	PutBook(ctx context.Context, isbn string, fields map[string]any) error
}

// ClientDispatcher dispatches results to the REST API.
type ClientDispatcher struct {
	api API
}

// NewClientDispatcher returns a dispatcher issuing requests through api.
func NewClientDispatcher(api API) *ClientDispatcher {
	return &ClientDispatcher{api: api}
}

// Dispatch runs action. API error envelopes become a failed Reply; other
// errors are returned.
func (d *ClientDispatcher) Dispatch(ctx context.Context, action string, r Result, st *State) (Reply, error) {
	reply, err := d.dispatch(ctx, action, r, st)
	if err == nil {
		return reply, nil
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return failed(apiErr), nil
	}
	return Reply{}, err
}

func (d *ClientDispatcher) dispatch(ctx context.Context, action string, r Result, st *State) (Reply, error) {
	switch action {
	case "":
		return Reply{Message: "Submitted", Lines: r.Lines()}, nil
	case "findBooks":
		return d.findBooks(ctx, r)
	case "addBook":
		return d.addBook(ctx, r)
	case "newCart":
		id, err := d.api.NewCart(ctx)
		if err != nil {
			return Reply{}, err
		}
		st.CartID = id
		return Reply{Message: "New cart created"}, nil
	case "cartItem":
		return d.cartItem(ctx, r, st)
	case "getCart":
		return d.getCart(ctx, st)
	}
	return Reply{}, fmt.Errorf("unknown form action %q", action)
}

func (d *ClientDispatcher) findBooks(ctx context.Context, r Result) (Reply, error) {
	q := url.Values{}
	for name, values := range r.Values() {
		for _, v := range values {
			if v != "" {
				q.Add(name, v)
			}
		}
	}
	page, err := d.api.FindBooks(ctx, q)
	if err != nil {
		return Reply{}, err
	}
	if len(page.Result) == 0 {
		return Reply{Message: "No books found"}, nil
	}
	reply := Reply{Message: fmt.Sprintf("%d books found", len(page.Result))}
	if len(page.Result) == 1 {
		reply.Message = "1 book found"
	}
	for _, b := range page.Result {
		reply.Lines = append(reply.Lines, fmt.Sprintf("%s by %s (ISBN %s)", b.Title, strings.Join(b.Authors, ", "), b.ISBN))
	}
	if _, more := page.Link("next"); more {
		reply.Lines = append(reply.Lines, "More results available")
	}
	return reply, nil
}

func (d *ClientDispatcher) addBook(ctx context.Context, r Result) (Reply, error) {
	isbn, _ := r["isbn"].(string)
	fields := make(map[string]any, len(r))
	for name, v := range r {
		fields[name] = v
	}
	if err := d.api.PutBook(ctx, isbn, fields); err != nil {
		return Reply{}, err
	}
	return Reply{Message: fmt.Sprintf("Book %s saved", isbn)}, nil
}

// cartItem creates a cart for shoppers without one, and replaces a cart
// the API no longer knows.
func (d *ClientDispatcher) cartItem(ctx context.Context, r Result, st *State) (Reply, error) {
	fields := map[string]any{"sku": r["sku"], "nUnits": r["nUnits"]}
	retried := false
	for {
		created := false
		if st.CartID == "" {
			id, err := d.api.NewCart(ctx)
			if err != nil {
				return Reply{}, err
			}
			st.CartID, created = id, true
		}
		err := d.api.UpdateCartItem(ctx, st.CartID, fields)
		if err == nil {
			return Reply{Message: "Cart updated"}, nil
		}
		if !created && !retried && staleCart(err) {
			st.CartID, retried = "", true
			continue
		}
		return Reply{}, err
	}
}

func (d *ClientDispatcher) getCart(ctx context.Context, st *State) (Reply, error) {
	if st.CartID == "" {
		return Reply{Message: "Your cart is empty"}, nil
	}
	cart, err := d.api.GetCart(ctx, st.CartID)
	if err != nil {
		if staleCart(err) {
			st.CartID = ""
			return Reply{Message: "Your cart is empty"}, nil
		}
		return Reply{}, err
	}
	if len(cart.Result) == 0 {
		return Reply{Message: "Your cart is empty"}, nil
	}
	reply := Reply{Message: "Your cart"}
	for _, item := range cart.Result {
		reply.Lines = append(reply.Lines, fmt.Sprintf("%s: %d", item.SKU, item.NUnits))
	}
	return reply, nil
}

func staleCart(err error) bool {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, e := range apiErr.Errors {
		if e.Code == "BAD_ID" && e.Name == "cartId" {
			return true
		}
	}
	return false
}

func failed(apiErr *client.APIError) Reply {
	reply := Reply{Failed: true, Fields: map[string]string{}}
	var general []string
	for _, e := range apiErr.Errors {
		if e.Name == "" {
			general = append(general, e.Message)
			continue
		}
		if _, dup := reply.Fields[e.Name]; !dup {
			reply.Fields[e.Name] = e.Message
		}
	}
	switch {
	case len(general) > 0:
		reply.Message = general[0]
		reply.Lines = general[1:]
	default:
		reply.Message = "Please correct the errors below."
	}
	return reply
}
