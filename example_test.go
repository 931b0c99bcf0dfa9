package sky_test

import (
	"fmt"
	"log"
	"os"

	"github.com/skylandlabs/sky"
)

func Example() {
	dir, _ := os.MkdirTemp("", "sky-example-")
	defer os.RemoveAll(dir)

	db := sky.NewDatabase(dir, sky.Config{})
	of, err := db.ObjectFile("users")
	if err != nil {
		log.Fatal(err)
	}
	if err := of.Open(); err != nil {
		log.Fatal(err)
	}
	defer of.Close()

	signup, _ := of.Actions().FindOrCreate("signup")
	login, _ := of.Actions().FindOrCreate("login")
	plan, _ := of.Properties().FindOrCreate("plan")

	of.AddEvent(sky.Event{ObjectID: 7, Timestamp: 200, ActionID: login})
	of.AddEvent(sky.Event{ObjectID: 7, Timestamp: 100, ActionID: signup,
		Properties: []sky.Property{{ID: plan, Value: sky.String("pro")}}})
	of.AddEvent(sky.Event{ObjectID: 3, Timestamp: 150, ActionID: login})

	it := sky.NewPathIterator(of)
	c := sky.NewCursor(nil)
	for err := it.Next(c); err == nil && !it.EOF(); err = it.Next(c) {
		for ; !c.EOF(); c.NextEvent() {
			e := c.Event()
			name, _ := of.Actions().Name(e.ActionID)
			fmt.Println(e.ObjectID, e.Timestamp, name)
		}
	}
	// Output:
	// 3 150 login
	// 7 100 signup
	// 7 200 login
}

func ExampleObjectFile_All() {
	dir, _ := os.MkdirTemp("", "sky-example-")
	defer os.RemoveAll(dir)

	of, _ := sky.NewDatabase(dir, sky.Config{}).ObjectFile("sessions")
	if err := of.Open(); err != nil {
		log.Fatal(err)
	}
	defer of.Close()

	for i := range 3 {
		of.AddEvent(sky.Event{ObjectID: uint64(3 - i), Timestamp: int64(i)})
	}

	count := 0
	for _, err := range of.All() {
		if err != nil {
			log.Fatal(err)
		}
		count++
	}
	fmt.Println(count)
	// Output: 3
}
