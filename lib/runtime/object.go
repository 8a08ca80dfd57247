package runtime

import "fmt"

// RegisterObjectClass registers the Object root class with the runtime.
// Called during runtime initialization. Classes do not inherit from
// Object implicitly; a class gets these universal methods by listing
// Object as a parent.
func RegisterObjectClass(r *Runtime) *Class {
	methods := map[string]MethodFunc{
		// class - return the receiver's class tag
		"class": func(self *StrongHandle, args []Value) Value {
			return StringValue(self.Class())
		},

		// id - return the receiver's cell ID
		"id": func(self *StrongHandle, args []Value) Value {
			return StringValue(self.ID())
		},

		// describe - canonical printable representation
		"describe": func(self *StrongHandle, args []Value) Value {
			return StringValue(fmt.Sprintf("<%s %s>", self.Class(), self.ID()))
		},

		// can - capability query; ordinary methods only, so a
		// fallback-synthesized selector reports false here
		"can": func(self *StrongHandle, args []Value) Value {
			if len(args) < 1 {
				return ErrorValue("can requires a selector argument")
			}
			return BoolValue(r.Reflect.CanHandle(self, args[0].AsString()) != nil)
		},

		// isa - ancestry query along the resolution order
		"isa": func(self *StrongHandle, args []Value) Value {
			if len(args) < 1 {
				return ErrorValue("isa requires a class argument")
			}
			return BoolValue(r.Reflect.Isa(self.Class(), args[0].AsString()))
		},

		// perform - dynamic dispatch by selector name
		"perform": func(self *StrongHandle, args []Value) Value {
			if len(args) < 1 {
				return ErrorValue("perform requires a selector argument")
			}
			result, err := r.Invoke(self, args[0].AsString(), args[1:])
			if err != nil {
				return ErrorValue(err.Error())
			}
			return result
		},

		// performWith - dynamic dispatch with the arguments packed in
		// a sequence
		"performWith": func(self *StrongHandle, args []Value) Value {
			if len(args) < 2 || args[1].Type != TypeArray {
				return ErrorValue("performWith requires a selector and an argument sequence")
			}
			seq := args[1].ArrayVal
			callArgs := make([]Value, 0, seq.Len())
			for i := 0; i < seq.Len(); i++ {
				callArgs = append(callArgs, seq.At(i))
			}
			result, err := r.Invoke(self, args[0].AsString(), callArgs)
			if err != nil {
				return ErrorValue(err.Error())
			}
			return result
		},
	}

	return r.Registry.Register("Object", ClassDef{
		Parents: []string{},
		Methods: methods,
		Version: "1.0",
	})
}
