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

import "github.com/icon-project/btp2/common/errors"

const (
	ErrorCodeHandlerFailure errors.Code = errors.CodeGeneral + 400 + iota
	ErrorCodeNotFoundReceiver
	ErrorCodeInvalidStack
	ErrorCodeInvalidMessage
	ErrorCodeNotInitialized
	ErrorCodeNotFoundField
)

var (
	errHandlerFailure = errors.NewBase(ErrorCodeHandlerFailure, "HandlerFailureError")
)

// HandlerFailureError reports a handler which failed to process a message.
// The persisted data is kept as it was before the message.
type HandlerFailureError interface {
	errors.ErrorCoder
	Message() string
	Handler() string
	Unwrap() error
}

type handlerFailureError struct {
	errors.ErrorCoder
	message string
	handler string
	cause   error
}

func (e *handlerFailureError) Error() string {
	return e.ErrorCoder.Error() + " " + e.handler + "(" + e.message + "): " + e.cause.Error()
}

func (e *handlerFailureError) Message() string {
	return e.message
}

func (e *handlerFailureError) Handler() string {
	return e.handler
}

func (e *handlerFailureError) Unwrap() error {
	return e.cause
}

func NewHandlerFailureError(message, handler string, cause error) HandlerFailureError {
	return &handlerFailureError{
		ErrorCoder: errHandlerFailure,
		message:    message,
		handler:    handler,
		cause:      cause,
	}
}
