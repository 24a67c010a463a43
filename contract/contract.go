/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package contract

import (
	"sync"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/tact-funcgen/cell"
	"github.com/icon-project/tact-funcgen/codec"
	"github.com/icon-project/tact-funcgen/codegen"
	"github.com/icon-project/tact-funcgen/types"
)

var (
	contractLogger = log.New()
)

func init() {
	contractLogger.SetLevel(log.DebugLevel)
}

// Handler processes a message. It may modify self, which is persisted only
// when it returns without error.
type Handler func(self *codec.Struct, msg *codec.Struct) error

// FallbackHandler processes a message matching no receiver. The body is
// nil for an empty message.
type FallbackHandler func(self *codec.Struct, body *cell.Cell) error

type Route int

const (
	// RouteAccept is the default path without a fallback handler.
	RouteAccept Route = iota
	RouteReceiver
	RouteFallback
)

var (
	routeNames = []string{"accept", "receiver", "fallback"}
)

func (r Route) String() string {
	if int(r) < len(routeNames) {
		return routeNames[r]
	}
	return "unknown"
}

func (r Route) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Outcome describes how one message was dispatched.
type Outcome struct {
	Route   Route      `json:"route"`
	Opcode  int64      `json:"opcode"`
	Message string     `json:"message,omitempty"`
	Handler string     `json:"handler,omitempty"`
	Data    *cell.Cell `json:"-"`
}

// Contract executes the entry points of a contract on its persisted data
// the same way the generated code does. Messages are processed one at a
// time; handlers must not call back into the contract.
type Contract struct {
	c        *codec.Codec
	cd       *types.ContractDescriptor
	handlers map[string]Handler
	fallback FallbackHandler
	data     *cell.Cell
	mtx      sync.RWMutex
	exec     sync.Mutex
}

func New(c *codec.Codec, cd *types.ContractDescriptor) *Contract {
	return &Contract{
		c:        c,
		cd:       cd,
		handlers: make(map[string]Handler),
	}
}

func (c *Contract) Descriptor() *types.ContractDescriptor {
	return c.cd
}

func (c *Contract) receiverOf(message string) (*types.Receiver, bool) {
	for _, r := range c.cd.Receivers {
		if r.Message.Name == message {
			return r, true
		}
	}
	return nil, false
}

// Register binds h to the receiver of the message type.
func (c *Contract) Register(message string, h Handler) error {
	if _, ok := c.receiverOf(message); !ok {
		return ErrorCodeNotFoundReceiver.Errorf("contract %s has no receiver of %s", c.cd.Name, message)
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.handlers[message] = h
	return nil
}

func (c *Contract) Fallback(h FallbackHandler) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.fallback = h
}

// Data returns the persisted data, nil before initialization.
func (c *Contract) Data() *cell.Cell {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.data
}

// SetData replaces the persisted data after checking its layout.
func (c *Contract) SetData(data *cell.Cell) error {
	if _, err := c.c.Unpack(c.cd.Storage.Name, data); err != nil {
		return err
	}
	c.exec.Lock()
	defer c.exec.Unlock()
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.data = data
	return nil
}

// Init builds the first persisted data from the init parameters given in
// declared order. Fields without a parameter take their default or null.
func (c *Contract) Init(stack []StackItem) (*cell.Cell, error) {
	if len(stack) != len(c.cd.Init) {
		return nil, ErrorCodeInvalidStack.Errorf("%s expects %d init parameters, got %d",
			c.cd.Name, len(c.cd.Init), len(stack))
	}
	values, err := codegen.InitValues(c.cd)
	if err != nil {
		return nil, err
	}
	params := make(map[string]interface{})
	for i, p := range c.cd.Init {
		v, err := stack[i].valueOf(c.c, p.Type)
		if err != nil {
			return nil, ErrorCodeInvalidStack.Wrapf(err, "invalid init parameter %s", p.Name)
		}
		params[p.Name] = v
	}
	self := &codec.Struct{Name: c.cd.Storage.Name}
	for _, iv := range values {
		f := iv.Field
		switch {
		case iv.Param != nil:
			self.Set(f.Name, params[iv.Param.Name])
		case f.HasDefault():
			d, err := codec.DefaultOf(f)
			if err != nil {
				return nil, err
			}
			self.Set(f.Name, d)
		default:
			self.Set(f.Name, nil)
		}
	}
	data, err := c.c.Pack(c.cd.Storage.Name, self)
	if err != nil {
		return nil, err
	}
	contractLogger.Traceln("Init", c.cd.Name, self.Fields)
	c.exec.Lock()
	defer c.exec.Unlock()
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.data = data
	return data, nil
}

// Load unpacks the persisted data.
func (c *Contract) Load() (*codec.Struct, error) {
	data := c.Data()
	if data == nil {
		return nil, ErrorCodeNotInitialized.Errorf("contract %s is not initialized", c.cd.Name)
	}
	return c.c.Unpack(c.cd.Storage.Name, data)
}

// Get returns a field of the persisted data.
func (c *Contract) Get(field string) (interface{}, error) {
	if _, ok := c.cd.Storage.Field(field); !ok {
		return nil, ErrorCodeNotFoundField.Errorf("field %s not found in %s", field, c.cd.Name)
	}
	self, err := c.Load()
	if err != nil {
		return nil, err
	}
	v, _ := self.Get(field)
	return v, nil
}

func opcodeOf(body *cell.Cell, bounced bool) int64 {
	if bounced {
		return -1
	}
	op, ok := codec.OpcodeOf(body)
	if !ok {
		return -1
	}
	return int64(op)
}

// Receive processes an internal message. A bounced message or a body without
// an opcode takes the default path as does an opcode matching no receiver.
// On error the persisted data is left untouched.
func (c *Contract) Receive(body *cell.Cell, bounced bool) (*Outcome, error) {
	c.exec.Lock()
	defer c.exec.Unlock()
	op := opcodeOf(body, bounced)
	for _, r := range c.cd.Receivers {
		if r.External || op != int64(r.Message.Opcode) {
			continue
		}
		return c.dispatch(r, op, body)
	}
	o := &Outcome{Route: RouteAccept, Opcode: op}
	c.mtx.RLock()
	fallback := c.fallback
	c.mtx.RUnlock()
	if c.cd.Fallback == "" || fallback == nil {
		o.Data = c.Data()
		contractLogger.Tracef("Receive contract:%s op:%d route:%s\n", c.cd.Name, op, o.Route)
		return o, nil
	}
	o.Route = RouteFallback
	o.Handler = c.cd.Fallback
	self, err := c.Load()
	if err != nil {
		return nil, err
	}
	if err = fallback(self, body); err != nil {
		return nil, NewHandlerFailureError("", c.cd.Fallback, err)
	}
	if o.Data, err = c.save(self); err != nil {
		return nil, err
	}
	contractLogger.Tracef("Receive contract:%s op:%d route:%s\n", c.cd.Name, op, o.Route)
	return o, nil
}

// ReceiveExternal processes an external message. Only external receivers
// are matched and anything else is rejected.
func (c *Contract) ReceiveExternal(body *cell.Cell) (*Outcome, error) {
	c.exec.Lock()
	defer c.exec.Unlock()
	op := opcodeOf(body, false)
	for _, r := range c.cd.Receivers {
		if r.External && op == int64(r.Message.Opcode) {
			return c.dispatch(r, op, body)
		}
	}
	return nil, ErrorCodeInvalidMessage.Errorf("no external receiver of %s for opcode %d", c.cd.Name, op)
}

func (c *Contract) dispatch(r *types.Receiver, op int64, body *cell.Cell) (*Outcome, error) {
	c.mtx.RLock()
	h, ok := c.handlers[r.Message.Name]
	c.mtx.RUnlock()
	if !ok {
		return nil, codegen.ErrorCodeHandlerNotFound.Errorf("handler %s of %s not registered", r.Handler, r.Message.Name)
	}
	self, err := c.Load()
	if err != nil {
		return nil, err
	}
	msg, err := c.c.UnpackBody(r.Message.Name, body)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to read %s", r.Message.Name)
	}
	if err = h(self, msg); err != nil {
		return nil, NewHandlerFailureError(r.Message.Name, r.Handler, err)
	}
	o := &Outcome{
		Route:   RouteReceiver,
		Opcode:  op,
		Message: r.Message.Name,
		Handler: r.Handler,
	}
	if o.Data, err = c.save(self); err != nil {
		return nil, err
	}
	contractLogger.Tracef("Receive contract:%s op:%d message:%s handler:%s\n", c.cd.Name, op, o.Message, o.Handler)
	return o, nil
}

// save persists self. Callers hold exec.
func (c *Contract) save(self *codec.Struct) (*cell.Cell, error) {
	data, err := c.c.Pack(c.cd.Storage.Name, self)
	if err != nil {
		return nil, err
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.data = data
	return data, nil
}
