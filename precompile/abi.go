// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package precompile

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"

	"github.com/luxfi/alchemist/alchemist"
)

var ErrUnknownEvent = errors.New("unknown event")

// Codec is the engine ABI. The embedded abi.ABI packs calls and unpacks
// results for callers; the contract side decodes calls, packs results and
// turns engine events into logs.
type Codec struct {
	abi.ABI
}

// ParseABI parses raw ABI JSON. It panics on malformed input.
func ParseABI(rawABI string) Codec {
	parsed, err := abi.JSON(strings.NewReader(rawABI))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return Codec{ABI: parsed}
}

// call is a decoded precompile invocation.
type call struct {
	method *abi.Method
	args   []interface{}
}

func (c call) address(i int) common.Address {
	a, _ := c.args[i].(common.Address)
	return a
}

func (c call) amount(i int) *big.Int {
	if n, ok := c.args[i].(*big.Int); ok {
		return n
	}
	return new(big.Int)
}

// method resolves the selector at the start of input.
func (c Codec) method(input []byte) (*abi.Method, error) {
	if len(input) < 4 {
		return nil, ErrInputTooShort
	}
	m, err := c.MethodById(input[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %x", ErrUnknownMethod, input[:4])
	}
	return m, nil
}

// decode resolves the method of input and unpacks its arguments.
func (c Codec) decode(input []byte) (call, error) {
	m, err := c.method(input)
	if err != nil {
		return call{}, err
	}
	args, err := m.Inputs.Unpack(input[4:])
	if err != nil {
		return call{}, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, m.Name, err)
	}
	if len(args) != len(m.Inputs) {
		return call{}, fmt.Errorf("%w: %s: got %d arguments", ErrInvalidArguments, m.Name, len(args))
	}
	return call{method: m, args: args}, nil
}

// encode packs the results of m, without a selector.
func (c Codec) encode(m *abi.Method, out []interface{}) ([]byte, error) {
	return m.Outputs.Pack(out...)
}

// log packs an engine event into a log emitted by address. Every indexed
// input of the engine's events is an address.
func (c Codec) log(address common.Address, ev alchemist.Event) (*types.Log, error) {
	event, ok := c.Events[ev.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Name)
	}
	if len(ev.Args) != len(event.Inputs) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrInvalidArguments, ev.Name, len(event.Inputs), len(ev.Args))
	}

	topics := []common.Hash{event.ID}
	var (
		fields abi.Arguments
		values []interface{}
	)
	for i, input := range event.Inputs {
		if !input.Indexed {
			fields = append(fields, input)
			values = append(values, ev.Args[i])
			continue
		}
		a, ok := ev.Args[i].(common.Address)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s is %T", ErrInvalidArguments, ev.Name, input.Name, ev.Args[i])
		}
		topics = append(topics, common.BytesToHash(a.Bytes()))
	}
	data, err := fields.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.Name, err)
	}
	return &types.Log{Address: address, Topics: topics, Data: data}, nil
}
