package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quiescent/statechart/builder"
	"github.com/quiescent/statechart/internal/chart"
	"github.com/quiescent/statechart/internal/engine"
	"github.com/quiescent/statechart/interpreter"
	"github.com/quiescent/statechart/production"
)

func main() {
	mb := builder.New("traffic-light", "traffic")
	traffic := mb.Compound("traffic").WithInitial("red")
	traffic.Atomic("red").On("TIMER", []string{"green"})
	traffic.Atomic("green").On("TIMER", []string{"yellow"})
	traffic.Atomic("yellow").On("TIMER", []string{"red"})

	c, err := mb.Build()
	if err != nil {
		panic(err)
	}

	persister, err := production.NewJSONPersister("/tmp", c)
	if err != nil {
		panic(err)
	}

	publishChan := make(chan engine.State, 100)
	publisher := production.NewChannelPublisher(publishChan)

	visualizer := &production.DefaultVisualizer{}

	ip := interpreter.New(c,
		interpreter.WithPersister(persister),
		interpreter.WithPublisher(publisher),
		interpreter.WithVisualizer(visualizer),
	)

	current := ip.Start()
	defer ip.Stop()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	cycles := 0
	for {
		select {
		case <-ticker.C:
			if err := ip.Send(chart.NewEvent("TIMER", nil)); err != nil {
				fmt.Printf("send error: %v\n", err)
			}
			time.Sleep(10 * time.Millisecond) // let the macrostep settle before reading
			current = ip.Snapshot()
			fmt.Printf("\n--- cycle %d ---\n", cycles+1)
			fmt.Println("current states:", current.Value.ToStrings())
			fmt.Println("dot:\n" + ip.Visualize())
			select {
			case s := <-publishChan:
				fmt.Printf("published: %v\n", s.Value.ToStrings())
			default:
			}
			cycles++
			if cycles >= 12 {
				fmt.Println("demo complete after 12 cycles.")
				return
			}
		case <-sig:
			fmt.Println("\nshutting down gracefully...")
			return
		}
	}
}
