package nationbuilder

import (
	"context"
	"iter"
)

// iterLimit is the page size used by the Iter helpers.
const iterLimit = 100

// pageFunc fetches the page behind cursor. An empty cursor requests the first page.
type pageFunc[T any] func(ctx context.Context, cursor string) (*Page[T], error)

// iterate returns an iterator that walks through all pages using the provided fetcher.
// Every range over the returned sequence starts again at the first page.
func iterate[T any](ctx context.Context, fetch pageFunc[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		cursor := ""

		for {
			page, err := fetch(ctx, cursor)
			if err != nil {
				yield(*new(T), err)
				return
			}

			for _, item := range page.Results {
				if !yield(item, nil) {
					return
				}
			}

			if !page.HasNext() || len(page.Results) == 0 {
				return
			}
			cursor = page.Next
		}
	}
}

// pages builds a pageFunc from the request of the first page.
func pages[T any](c *Client, first func(context.Context) (*Page[T], error)) pageFunc[T] {
	return func(ctx context.Context, cursor string) (*Page[T], error) {
		if cursor == "" {
			return first(ctx)
		}

		return nextPage[T](ctx, c, cursor)
	}
}

// nextPage fetches the page behind a pagination cursor.
func nextPage[T any](ctx context.Context, c *Client, cursor string) (*Page[T], error) {
	req, err := c.newCursorRequest(ctx, cursor)
	if err != nil {
		return nil, err
	}

	var page Page[T]
	if _, err := c.doJSON(req, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// NextPage fetches the page following p. It returns nil and no error on the last page.
func NextPage[T any](ctx context.Context, c *Client, p *Page[T]) (*Page[T], error) {
	if !p.HasNext() {
		return nil, nil
	}

	return nextPage[T](ctx, c, p.Next)
}
