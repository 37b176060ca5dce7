package twi

import "growctl-go/errcode"

var (
	ErrAddrNACK        = &errcode.E{C: errcode.NACK, Op: "twi", Msg: "address not acknowledged"}
	ErrDataNACK        = &errcode.E{C: errcode.NACK, Op: "twi", Msg: "data not acknowledged"}
	ErrArbitrationLost = &errcode.E{C: errcode.ArbitrationLost, Op: "twi"}
	ErrBusError        = &errcode.E{C: errcode.BusError, Op: "twi", Msg: "illegal start or stop"}
	ErrTimeout         = &errcode.E{C: errcode.Timeout, Op: "twi", Msg: "poll budget exhausted"}
	ErrPayloadTooLarge = &errcode.E{C: errcode.PayloadTooLarge, Op: "twi"}
	ErrNothingToRetry  = &errcode.E{C: errcode.InvalidParams, Op: "twi", Msg: "no previous transaction"}
)
