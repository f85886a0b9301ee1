package api

import (
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/grpc/encoding"
)

const (
	codecName = "msgpack"
)

var (
	_ encoding.Codec = codec{}
)

func init() {
	encoding.RegisterCodec(codec{})
}

// codec carries the node request and response shapes as msgpack, the same
// encoding blocks and txs use on disk.
type codec struct{}

func (codec) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

func (codec) Name() string {
	return codecName
}
