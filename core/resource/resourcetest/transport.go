// Package resourcetest provides a canned-response Transport for testing controllers.
package resourcetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/trezcool/masomo-admin/core/resource"
)

// Call is one request seen by the Transport.
type Call struct {
	Method  string
	Path    string
	Payload *resource.Payload
}

type response struct {
	body string
	err  error
}

// Transport answers calls from a queue of canned responses per "METHOD path".
// Unexpected calls fail.
type Transport struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string][]response
	gate      chan struct{}
}

var _ resource.Transport = (*Transport)(nil)

func NewTransport() *Transport {
	return &Transport{responses: make(map[string][]response)}
}

// On queues a response for the next method+path call.
func (tr *Transport) On(method, path, body string, err error) *Transport {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	key := method + " " + path
	tr.responses[key] = append(tr.responses[key], response{body: body, err: err})
	return tr
}

func (tr *Transport) Do(_ context.Context, method, path string, payload *resource.Payload) ([]byte, error) {
	tr.mu.Lock()
	tr.calls = append(tr.calls, Call{Method: method, Path: path, Payload: payload})
	key := method + " " + path
	queue := tr.responses[key]
	if len(queue) == 0 {
		tr.mu.Unlock()
		return nil, fmt.Errorf("unexpected call %s", key)
	}
	res := queue[0]
	tr.responses[key] = queue[1:]
	gate := tr.gate
	tr.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return []byte(res.body), res.err
}

// Hold makes every following call wait on gate before it is answered.
// A nil gate answers calls right away again; calls already waiting keep waiting until gate is closed.
func (tr *Transport) Hold(gate chan struct{}) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.gate = gate
}

// Calls returns a copy of the calls seen so far.
func (tr *Transport) Calls() []Call {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]Call(nil), tr.calls...)
}

func (tr *Transport) CallCount() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.calls)
}
