// Package codegen emits JavaScript from compiled passes: a checker map holding
// one method per named check unit, plus an exported predicate per root.
package codegen

import (
	"fmt"
	"strings"
)

// Emitter builds JavaScript source code with proper indentation.
type Emitter struct {
	buf    strings.Builder
	indent int
}

// NewEmitter creates a new JavaScript code emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Line writes a single line of code at the current indentation level.
func (e *Emitter) Line(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if line == "" {
		e.buf.WriteByte('\n')
		return
	}
	e.writeIndent()
	e.buf.WriteString(line)
	e.buf.WriteByte('\n')
}

// Blank writes an empty line.
func (e *Emitter) Blank() {
	e.buf.WriteByte('\n')
}

// Block opens a block (appends " {" to the line and increases indent).
func (e *Emitter) Block(format string, args ...any) {
	e.writeIndent()
	e.buf.WriteString(fmt.Sprintf(format, args...))
	e.buf.WriteString(" {\n")
	e.indent++
}

// EndBlock closes a block (decreases indent and writes "}").
func (e *Emitter) EndBlock() {
	e.EndBlockSuffix("")
}

// EndBlockSuffix closes a block with a suffix (e.g., "};" or "},").
func (e *Emitter) EndBlockSuffix(suffix string) {
	if e.indent > 0 {
		e.indent--
	}
	e.writeIndent()
	e.buf.WriteString("}")
	e.buf.WriteString(suffix)
	e.buf.WriteByte('\n')
}

func (e *Emitter) writeIndent() {
	for range e.indent {
		e.buf.WriteString("  ")
	}
}

// String returns the accumulated source code.
func (e *Emitter) String() string {
	return e.buf.String()
}

// Len returns the current byte length.
func (e *Emitter) Len() int {
	return e.buf.Len()
}
