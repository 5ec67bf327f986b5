package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	ws "github.com/coder/websocket"
	"github.com/dukerupert/daybook/internal/model"
	"github.com/dukerupert/daybook/internal/websocket"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// SubscribeTasks streams the user's full task list: once on subscribe and
// again after every task change. Only the latest list is kept if the
// receiver falls behind. The channel closes when ctx is cancelled.
func (c *Client) SubscribeTasks(ctx context.Context, user string) (<-chan []model.Task, error) {
	return subscribe(ctx, c, user, "task", func(ctx context.Context) ([]model.Task, error) {
		return c.ListTasks(ctx, user)
	})
}

// SubscribeNotes streams the user's notes, nil while none exist.
func (c *Client) SubscribeNotes(ctx context.Context, user string) (<-chan *model.Notes, error) {
	return subscribe(ctx, c, user, "notes", func(ctx context.Context) (*model.Notes, error) {
		return c.Notes(ctx, user)
	})
}

// Subscribe streams raw change messages for the user.
func (c *Client) Subscribe(ctx context.Context, user string) (<-chan websocket.Message, error) {
	conn, err := c.dial(ctx, user)
	if err != nil {
		return nil, err
	}
	out := make(chan websocket.Message, 16)
	go func() {
		defer close(out)
		c.pump(ctx, conn, user, func(msg websocket.Message) {
			select {
			case out <- msg:
			case <-ctx.Done():
			}
		})
	}()
	return out, nil
}

func (c *Client) wsURL(user string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"user": {user}}.Encode()
	return u.String(), nil
}

func (c *Client) dial(ctx context.Context, user string) (*ws.Conn, error) {
	target, err := c.wsURL(user)
	if err != nil {
		return nil, err
	}
	conn, _, err := ws.Dial(ctx, target, &ws.DialOptions{HTTPClient: c.http})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return conn, nil
}

// pump reads messages until the connection fails or ctx ends, then
// closes the connection.
func (c *Client) pump(ctx context.Context, conn *ws.Conn, user string, handle func(websocket.Message)) {
	defer conn.CloseNow()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("subscription read", "user", user, "error", err)
			}
			return
		}
		var msg websocket.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("bad subscription message", "error", err)
			continue
		}
		handle(msg)
	}
}

// subscribe implements notify-then-refetch: every message about entity
// triggers fetch, and the result replaces whatever is still unread.
// Dropped connections are redialled with backoff until ctx ends.
func subscribe[T any](ctx context.Context, c *Client, user, entity string, fetch func(context.Context) (T, error)) (<-chan T, error) {
	conn, err := c.dial(ctx, user)
	if err != nil {
		return nil, err
	}

	out := make(chan T, 1)
	emit := func() {
		v, err := fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("subscription refetch", "user", user, "entity", entity, "error", err)
			}
			return
		}
		// latest value wins
		select {
		case <-out:
		default:
		}
		select {
		case out <- v:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(out)
		backoff := minBackoff
		for {
			emit()
			c.pump(ctx, conn, user, func(msg websocket.Message) {
				if msg.Entity == entity {
					emit()
				}
			})
			if ctx.Err() != nil {
				return
			}

			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				conn, err = c.dial(ctx, user)
				if err == nil {
					backoff = minBackoff
					break
				}
				c.logger.Warn("subscription redial", "user", user, "error", err, "retry_in", backoff)
				backoff = min(backoff*2, maxBackoff)
			}
		}
	}()
	return out, nil
}
