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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/icon-project/btp2/common/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/icon-project/tact-funcgen/contract"
	"github.com/icon-project/tact-funcgen/database"
	"github.com/icon-project/tact-funcgen/service"
	"github.com/icon-project/tact-funcgen/types"
)

const (
	GroupUrlApi     = "/api"
	UrlCompile      = "/compile"
	UrlLayout       = "/layout"
	UrlInit         = "/init"
	UrlPack         = "/pack"
	UrlAbi          = "/abi"
	UrlArtifacts    = "/artifacts"
	ShutdownTimeout = time.Second
)

func Logger(l log.Logger) log.Logger {
	return l.WithFields(log.Fields{log.FieldKeyModule: "api"})
}

type Server struct {
	e    *echo.Echo
	addr string
	c    *service.Compiler
	lv   log.Level
	l    log.Logger
}

func NewServer(addr string, transportLogLevel log.Level, c *service.Compiler, l log.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HttpErrorHandler
	s := &Server{
		e:    e,
		addr: addr,
		c:    c,
		lv:   EnsureTransportLogLevel(transportLogLevel),
		l:    Logger(l),
	}
	e.Use(
		middleware.CORSWithConfig(middleware.CORSConfig{
			MaxAge: 3600,
		}),
		middleware.Recover())
	s.RegisterAPIHandler(e.Group(GroupUrlApi))
	return s
}

func (s *Server) Start() error {
	s.l.Infoln("starting the server")
	return s.e.Start(s.addr)
}

func (s *Server) Stop() error {
	s.l.Infoln("shutting down the server")
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.e.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

type UniverseRequest struct {
	Universe *types.Universe `json:"universe" validate:"required"`
}

type InitRequest struct {
	UniverseRequest
	Contract string               `json:"contract" validate:"required"`
	Stack    []contract.StackItem `json:"stack" validate:"dive"`
}

type PackRequest struct {
	UniverseRequest
	Type  string          `json:"type" validate:"required"`
	Value json.RawMessage `json:"value" validate:"required"`
}

type AbiRequest struct {
	UniverseRequest
	Contract string `json:"contract" validate:"required"`
}

type ArtifactsRequest struct {
	Contract string `query:"contract"`
	Page     uint   `query:"page"`
	Size     uint   `query:"size"`
	Sort     string `query:"sort"`
}

func (s *Server) bind(c echo.Context, req interface{}) error {
	if err := UnmarshalRequestBody(c, req); err != nil {
		s.l.Debugf("fail to UnmarshalRequestBody err:%+v", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		s.l.Debugf("fail to Validate err:%+v", err)
		return err
	}
	return nil
}

func (s *Server) RegisterAPIHandler(g *echo.Group) {
	g.Use(middleware.BodyDump(func(c echo.Context, reqBody []byte, resBody []byte) {
		s.l.Debugf("url=%s", c.Request().RequestURI)
		s.l.Logf(s.lv, "request=%s", reqBody)
		s.l.Logf(s.lv, "response=%s", resBody)
	}))
	oas := NewServerOpenAPISpec()
	g.GET("", func(c echo.Context) error {
		return c.JSON(http.StatusOK, oas)
	})
	g.POST(UrlCompile, func(c echo.Context) error {
		req := &service.CompileRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		ret, err := s.c.Compile(req)
		if err != nil {
			s.l.Debugf("fail to Compile err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, ret)
	})
	g.POST(UrlLayout, func(c echo.Context) error {
		req := &UniverseRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		ret, err := s.c.Layout(req.Universe)
		if err != nil {
			s.l.Debugf("fail to Layout err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, ret)
	})
	g.POST(UrlInit, func(c echo.Context) error {
		req := &InitRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		ret, err := s.c.Init(req.Universe, req.Contract, req.Stack)
		if err != nil {
			s.l.Debugf("fail to Init err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, ret)
	})
	g.POST(UrlPack, func(c echo.Context) error {
		req := &PackRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		var value map[string]interface{}
		if err := UnmarshalBody(io.NopCloser(bytes.NewReader(req.Value)), &value); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		ret, err := s.c.Pack(req.Universe, req.Type, value)
		if err != nil {
			s.l.Debugf("fail to Pack err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, ret)
	})
	g.POST(UrlAbi, func(c echo.Context) error {
		req := &AbiRequest{}
		if err := s.bind(c, req); err != nil {
			return err
		}
		ret, err := NewContractOpenAPISpec(req.Universe, req.Contract)
		if err != nil {
			s.l.Debugf("fail to NewContractOpenAPISpec err:%+v", err)
			return err
		}
		return c.JSON(http.StatusOK, ret)
	})
	g.GET(UrlArtifacts, func(c echo.Context) error {
		req := &ArtifactsRequest{}
		if err := c.Bind(req); err != nil {
			return echo.ErrBadRequest
		}
		ret, err := s.c.Artifacts(req.Contract, database.Pageable{
			Page: req.Page,
			Size: req.Size,
			Sort: req.Sort,
		})
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return c.JSON(http.StatusOK, ret)
	})
}

func UnmarshalRequestBody(c echo.Context, v interface{}) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	return UnmarshalBody(c.Request().Body, v)
}

func UnmarshalBody(b io.ReadCloser, v interface{}) error {
	defer b.Close()
	d := json.NewDecoder(b)
	d.UseNumber()
	if err := d.Decode(v); err != nil {
		return err
	}
	return nil
}
