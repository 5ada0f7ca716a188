// Package thread pins window system work to the main OS thread.
// GLFW requires window creation, destruction and event polling to
// happen on the thread that called main.
// See: https://github.com/golang/go/wiki/LockOSThread
package thread

import (
	"runtime"

	"github.com/faiface/mainthread"
)

func init() {
	runtime.LockOSThread()
}

// Run turns the calling goroutine into the main thread executor and
// runs f on a separate goroutine. Run returns when f returns.
func Run(f func()) { mainthread.Run(f) }

// Call queues f on the main thread and blocks until it finishes.
func Call(f func()) { mainthread.Call(f) }

// CallErr is Call for functions returning an error.
func CallErr(f func() error) error { return mainthread.CallErr(f) }
