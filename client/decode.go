package client

import (
	"errors"

	"github.com/vgavro/requests-client/logger"
)

// DecodeContext carries the environment a response decoder runs in.
type DecodeContext struct {
	DebugLevel int
	Logger     logger.Logger
	Client     *Client
	Response   *Response
}

// Decoder turns a raw decoded payload into a typed value. Implementations
// return a ClientError, usually *ValidationError, when the payload does not
// match the expected shape.
type Decoder interface {
	Decode(ctx DecodeContext, data any) (any, error)
}

// DecodeContext builds the decode environment for resp.
func (c *Client) DecodeContext(resp *Response) DecodeContext {
	return DecodeContext{
		DebugLevel: c.config.DebugLevel,
		Logger:     c.log,
		Client:     c,
		Response:   resp,
	}
}

// ApplyDecoder replaces resp.Data with the decoder's output. A validation
// failure keeps resp.Data untouched and is returned with the response
// attached for rendering.
func (c *Client) ApplyDecoder(resp *Response, dec Decoder) error {
	out, err := dec.Decode(c.DecodeContext(resp), resp.Data)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) && ve.Resp == nil {
			ve.Resp = resp
		}
		return err
	}
	resp.Data = out
	return nil
}
