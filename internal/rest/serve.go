// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package rest exposes the edge detection pipeline over HTTP. Requests name relative
// input and output files, responses stream the plain text log.
package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/mlnoga/rawedge/internal/ops"
	"github.com/mlnoga/rawedge/internal/ops/filter"
	"github.com/mlnoga/rawedge/web"
)

// Builds the router for the /api/v1 endpoints
func NewRouter(maxThreads int) *gin.Engine {
	return newRouter(ops.NewContext(nil, maxThreads))
}

// Builds the router with a base context, which each request copies with its own log
func newRouter(base *ops.Context) *gin.Engine {
	s := &server{base: base}
	r := gin.Default()
	r.GET("/", getIndex)
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/blur", s.postBlur)
			v1.POST("/sobel", s.postSobel)
			v1.POST("/stats", s.postStats)
			v1.POST("/pipeline", s.postPipeline)
		}
	}
	return r
}

// Listens and serves on the given address, e.g. ":8080"
func Serve(addr string, maxThreads int) error {
	return NewRouter(maxThreads).Run(addr)
}

type server struct {
	base *ops.Context
}

func getIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// Serializes writes from concurrently materialized promises
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

// Switches the response to a streamed plain text log, prints the arguments and runs the sequence
func (s *server) run(c *gin.Context, args interface{}, seq *ops.OpSequence) {
	logWriter := &syncWriter{w: c.Writer}
	c.Writer.Header().Set("Content-Type", "text/plain")
	c.Writer.WriteHeader(http.StatusOK)

	if err := printArgs(logWriter, "Arguments:\n", "\n", args); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}
	ctx := *s.base
	ctx.Log = logWriter
	if err := ops.Run(seq, &ctx); err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	c.Writer.Flush()
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

type postBlurArgs struct {
	FilePatterns []string       `json:"filePatterns" binding:"required"`
	Blur         *filter.OpBlur `json:"blur"`
	Out          string         `json:"out" binding:"required"`
}

func (s *server) postBlur(c *gin.Context) {
	args := postBlurArgs{Blur: filter.NewOpBlurDefault()}
	if err := c.ShouldBindJSON(&args); err != nil {
		badRequest(c, err)
		return
	}
	seq := ops.NewOpSequence(ops.NewOpLoadMany(args.FilePatterns), args.Blur, ops.NewOpSave(args.Out))
	s.run(c, args, seq)
}

type postSobelArgs struct {
	FilePatterns []string        `json:"filePatterns" binding:"required"`
	Sobel        *filter.OpSobel `json:"sobel"`
	Out          string          `json:"out" binding:"required"`
	Directions   bool            `json:"directions"`
}

func (s *server) postSobel(c *gin.Context) {
	args := postSobelArgs{Sobel: filter.NewOpSobelDefault()}
	if err := c.ShouldBindJSON(&args); err != nil {
		badRequest(c, err)
		return
	}
	save := ops.NewOpSave(args.Out)
	save.Directions = args.Directions
	seq := ops.NewOpSequence(ops.NewOpLoadMany(args.FilePatterns), args.Sobel, save)
	s.run(c, args, seq)
}

type postStatsArgs struct {
	FilePatterns []string        `json:"filePatterns" binding:"required"`
	Stats        *filter.OpStats `json:"stats"`
}

func (s *server) postStats(c *gin.Context) {
	args := postStatsArgs{Stats: filter.NewOpStatsDefault()}
	if err := c.ShouldBindJSON(&args); err != nil {
		badRequest(c, err)
		return
	}
	seq := ops.NewOpSequence(ops.NewOpLoadMany(args.FilePatterns), args.Stats)
	s.run(c, args, seq)
}

func (s *server) postPipeline(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}
	seq, err := ops.ParsePipelineJSON(body)
	if err != nil {
		badRequest(c, err)
		return
	}
	s.run(c, seq, seq)
}
