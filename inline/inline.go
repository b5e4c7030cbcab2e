// Package inline provides the marker that tags a function for expansion by goinline.
//
//	import "github.com/gnolang/goinline/inline"
//
//	func logError(msg string, err error) {
//		inline.Inline()
//		log.Println(msg, err)
//	}
//
// Every statement-level call of logError is replaced by the body of logError,
// and the declaration itself, together with this import, is removed from the
// rewritten file.
package inline

// Inline marks the enclosing function as a macro when it is the first
// statement of the function body. It does nothing at run time, so marked code
// still builds and runs when it is not expanded.
func Inline() {}
