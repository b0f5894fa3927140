package generator

// RuntimeName is the global object generated code talks to.
const RuntimeName = "N$$_"

const (
	exportsRef  = RuntimeName + ".x."
	globalsRef  = RuntimeName + ".g."
	selectorFn  = RuntimeName + ".s"
	initFn      = RuntimeName + ".i"
	argsName    = "N$args"
	valueName   = "N$v"
	oldName     = "N$o"
	filePrelude = `(function(){"use strict";`
	fileClosing = `})();`
)

// Bootstrap defines the runtime registry. It is emitted once, ahead of every
// file, by a compiler that has no parent.
const Bootstrap = `var N$$_ = (function() {
"use strict";
function Selector(name) { this.name = name; }
function s(name) { return new Selector(name); }
function i(obj, args) {
  if (args.length > 0 && args[0] instanceof Selector) {
    var name = args[0].name;
    if (typeof obj[name] !== "function") { throw new Error("Unknown initializer " + name); }
    obj[name].apply(obj, Array.prototype.slice.call(args, 1));
  } else if (typeof obj.init === "function") {
    obj.init.apply(obj, args);
  }
}
return { x: {}, g: {}, s: s, i: i };
})();`

// TypecheckDefs declares the runtime for the type checker.
const TypecheckDefs = `declare const N$$_: {
  x: { [name: string]: any };
  g: { [name: string]: any };
  s(name: string): any;
  i(obj: any, args: any[]): void;
};
interface Object { observeValueChange?(key: string, oldValue: any, newValue: any): void; }
`
