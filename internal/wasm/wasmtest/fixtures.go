package wasmtest

// Basic exports add(a, b) and addToNumber(n), which adds n to an internal 42.
// It has no imports.
func Basic() []byte {
	b := New()
	binary := b.Type([]ValType{I32, I32}, []ValType{I32})
	unary := b.Type([]ValType{I32}, []ValType{I32})

	number := b.GlobalI32(42, false)

	add := b.Func(binary, Seq(LocalGet(0), LocalGet(1), I32Add())...)
	addToNumber := b.Func(unary, Seq(LocalGet(0), GlobalGet(number), I32Add())...)

	b.Export("add", KindFunc, add)
	b.Export("addToNumber", KindFunc, addToNumber)
	return b.Bytes()
}

// Imported requires functions and a memory from two JS modules, declared
// interleaved so grouping has to preserve first-seen module order:
//
//	./env.js  log     (i32) -> ()
//	./math.js double  (i32) -> i32
//	./env.js  memory  memory, 1 page
//	./math.js is-even (i32) -> i32
//
// It exports run(n) = double(n), the imported memory, and run again as "a-b".
func Imported() []byte {
	b := New()
	sink := b.Type([]ValType{I32}, nil)
	unary := b.Type([]ValType{I32}, []ValType{I32})

	b.ImportFunc("./env.js", "log", sink)
	double := b.ImportFunc("./math.js", "double", unary)
	b.ImportMemory("./env.js", "memory", 1)
	b.ImportFunc("./math.js", "is-even", unary)

	run := b.Func(unary, Seq(LocalGet(0), Call(double))...)

	b.Export("run", KindFunc, run)
	b.Export("memory", KindMemory, 0)
	b.Export("a-b", KindFunc, run)
	return b.Bytes()
}
