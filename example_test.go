package propwatch_test

import (
	"fmt"

	"github.com/shuakami/propwatch"
)

// ExampleWatch 展示最简使用场景：用Mutator把写入的值翻倍
//
// 运行示例命令: go test -v -run=ExampleWatch
func ExampleWatch() {
	obj := propwatch.NewObject()
	_ = obj.Define("x", propwatch.DataProperty(1))

	double := func(c propwatch.Change) (any, error) {
		return c.NewValue.(int) * 2, nil
	}
	w, err := propwatch.Watch(obj, "x", propwatch.Mutator(double), nil)
	if err != nil {
		fmt.Println("Error watching:", err)
		return
	}

	_ = obj.Set("x", 5)
	fmt.Println("x =", obj.Get("x"))
	fmt.Println("mutators:", len(propwatch.Mutators(obj, "x")))
	fmt.Println("scope is target:", w.Scope == obj)

	propwatch.Unwatch(obj, "x", w)
	_ = obj.Set("x", 5)
	fmt.Println("x =", obj.Get("x"))

	// Output:
	// x = 10
	// mutators: 1
	// scope is target: true
	// x = 5
}

// ExampleInterceptor_Watch 展示观察者看到的旧值与新值
func ExampleInterceptor_Watch() {
	in, err := propwatch.NewInterceptor(propwatch.Config{EventBuffer: 8})
	if err != nil {
		fmt.Println("Error creating interceptor:", err)
		return
	}
	defer in.Close()

	obj := propwatch.NewObject()
	_ = obj.Define("status", propwatch.DataProperty("idle"))

	_, _ = in.Watch(obj, "status", propwatch.Func(func(c propwatch.Change) (any, error) {
		fmt.Printf("%s: %v -> %v\n", c.Property, c.OldValue, c.NewValue)
		return nil, nil
	}), nil)

	_ = obj.Set("status", "running")
	_ = obj.Set("status", "done")

	ev := <-in.EventChan
	fmt.Println("first event:", ev.OldValue, "->", ev.NewValue)

	// Output:
	// status: idle -> running
	// status: running -> done
	// first event: idle -> running
}
