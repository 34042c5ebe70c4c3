package main

import (
	"context"
	"encoding/json"
	"flag"
	"net"
	"os"
	"time"

	"github.com/2beens/trainplan/internal/plan"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// announces a saved plan to running trainplan services, the same way the plan editor does

func main() {
	redisHost := flag.String("redis-host", "localhost", "redis host")
	redisPort := flag.String("redis-port", "6379", "redis port")
	userID := flag.Int64("user", 0, "id of the user whose plan was saved")
	planPath := flag.String("plan", "", "path to a JSON array of day plans (empty: services reload the plan from the db)")
	flag.Parse()

	if *userID <= 0 {
		log.Fatalln("user id not specified")
	}

	var days []plan.DayPlan
	if *planPath != "" {
		planBytes, err := os.ReadFile(*planPath)
		if err != nil {
			log.Fatalf("read plan file: %s", err)
		}
		if err := json.Unmarshal(planBytes, &days); err != nil {
			log.Fatalf("unmarshal plan: %s", err)
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(*redisHost, *redisPort),
		Password: os.Getenv("TRAINPLAN_REDIS_PASS"),
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Errorf("close redis client: %s", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := plan.NewNotifier(rdb).PlanSaved(ctx, *userID, days); err != nil {
		log.Fatalf("notify plan saved: %s", err)
	}
	log.Infof("plan saved event sent for user %d (%d days)", *userID, len(days))
}
