//go:build tinygo || !cgo

package glexec

import "github.com/soypat/gvox/glbuild"

// Init1x1GLFW starts a 1x1 sized GLFW so that user can start working with GPU.
func Init1x1GLFW() (terminate func(), err error) {
	return nil, errNoCGO
}

// Executor runs every dispatch of a unit in order.
type Executor struct{}

// NewExecutor compiles one program per dispatch of the unit.
func NewExecutor(unit *glbuild.Unit, cfg Config) (*Executor, error) {
	if err := checkUnit(unit); err != nil {
		return nil, err
	}
	return nil, errNoCGO
}

func (ex *Executor) SetConfig(cfg Config) error { return errNoCGO }

func (ex *Executor) Run() error { return errNoCGO }

func (ex *Executor) ReadOutput(name string, dst []float32) error { return errNoCGO }

func (ex *Executor) Delete() {}
