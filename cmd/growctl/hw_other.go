//go:build !linux && !(rp2040 || rp2350 || avr)

package main

import (
	"io"

	"growctl-go/errcode"
	"growctl-go/services/app"
)

func hardwareBoard(string, int) (app.Board, io.Closer, error) {
	return app.Board{}, nil, &errcode.E{C: errcode.Unsupported, Op: "main.hw", Msg: "hardware needs linux"}
}
