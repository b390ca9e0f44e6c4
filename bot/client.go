package bot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	requestTimeout = 10 * time.Second
	requestRetries = 3
)

// Requester is the part of a NATS connection the client needs.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

type Client struct {
	nc      Requester
	subject string
}

func NewClient(nc Requester, subject string) *Client {
	return &Client{nc: nc, subject: subject}
}

// Solve sends a request to the bot and waits for the answer. Failed
// requests are retried with backoff.
func (c *Client) Solve(ctx context.Context, req SolveRequest) (*SolveResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var res *nats.Msg
	err = retry.Do(
		func() error {
			rctx, cancel := context.WithTimeout(ctx, requestTimeout)
			defer cancel()
			var rerr error
			res, rerr = c.nc.RequestWithContext(rctx, c.subject, data)
			return rerr
		},
		retry.Context(ctx),
		retry.Attempts(requestRetries),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			log.Err(err).Uint("n", n).Msg("solve-request-failed-try-again")
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		return nil, err
	}
	log.Debug().Msgf("res: %v", string(res.Data))

	resp := &SolveResponse{}
	if err := json.Unmarshal(res.Data, resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return resp, errors.New("Bot returned: " + resp.Error)
	}
	return resp, nil
}
