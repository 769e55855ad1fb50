package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/logitrack/internal/adapter/storage"
	"github.com/rl1809/logitrack/internal/cache"
	"github.com/rl1809/logitrack/internal/core/domain"
	"github.com/rl1809/logitrack/internal/core/service"
)

const (
	sharedItems   = 20
	totalRequests = 50
)

// Each writer creates an order and immediately lists orders through the
// shared Redis cache. A list that does not contain the writer's own order is
// a stale read.
func main() {
	redisAddr := flag.String("redis", "localhost:6379", "redis address")
	flag.Parse()

	ctx := context.Background()

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous test data
	for _, pattern := range []string{"Inventory:*", "Orders:*"} {
		keys, _ := rdb.Keys(ctx, pattern).Result()
		for _, k := range keys {
			rdb.Del(ctx, k)
		}
	}

	layer, err := cache.New(cache.Options{Backend: storage.NewRedisAdapter(rdb, false)})
	if err != nil {
		log.Fatalf("failed to build cache: %v", err)
	}
	deps := service.Dependencies{Store: storage.NewMemoryAdapter(), Cache: layer}
	inventoryService := service.NewInventoryService(deps)
	orderService := service.NewOrderService(deps)

	seed := make([]service.InventoryInput, sharedItems)
	for i := range seed {
		seed[i] = service.InventoryInput{Name: fmt.Sprintf("pallet-%d", i), Quantity: 1, Location: "dock"}
	}
	if _, err := inventoryService.Seed(ctx, seed); err != nil {
		log.Fatalf("failed to seed inventory: %v", err)
	}
	items, err := inventoryService.GetInventoryList(ctx)
	if err != nil {
		log.Fatalf("failed to list inventory: %v", err)
	}

	// Counters
	var successCount, failCount, staleCount atomic.Int32

	// Spawn concurrent writers
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			order, err := orderService.CreateOrder(ctx, service.OrderInput{
				CustomerName: fmt.Sprintf("customer-%d", n),
				Items: []domain.InventoryItem{
					{ItemID: items[n%len(items)].ItemID},
					{Name: fmt.Sprintf("crate-%d", n), Quantity: 1, Location: "bay"},
				},
			})
			if err != nil {
				failCount.Add(1)
				return
			}
			successCount.Add(1)

			list, err := orderService.GetOrderList(ctx)
			if err != nil || !containsOrder(list, order.OrderID) {
				staleCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	fail := failCount.Load()
	stale := staleCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Shared Items:     %d\n", sharedItems)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Stale Reads:      %d\n", stale)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success == totalRequests && stale == 0 {
		fmt.Printf("PASS: All %d orders created and visible to their writer\n", totalRequests)
	} else {
		fmt.Printf("FAIL: Expected %d success/0 stale, got %d/%d\n", totalRequests, success, stale)
	}

	// Every shared item ends up owned by exactly one order
	final, err := inventoryService.GetInventoryList(ctx)
	if err != nil {
		log.Fatalf("failed to list inventory: %v", err)
	}
	owned := 0
	for _, it := range final {
		if it.OrderID != nil {
			owned++
		}
	}
	fmt.Printf("Owned Items:      %d/%d\n", owned, len(final))

	if owned == len(final) && len(final) == sharedItems+totalRequests {
		fmt.Println("PASS: Every item is assigned to an order")
	} else {
		fmt.Printf("FAIL: Expected %d owned items, got %d/%d\n", sharedItems+totalRequests, owned, len(final))
	}

	stats := layer.Stats()
	fmt.Printf("Cache:            hits=%d misses=%d errors=%d\n", stats.Hits, stats.Misses, stats.Errors)
}

func containsOrder(list []domain.OrderView, id int64) bool {
	for _, o := range list {
		if o.OrderID == id {
			return true
		}
	}
	return false
}
