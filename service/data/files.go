package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/firewatch/fd-go/model"
	"github.com/firewatch/fd-go/service/config"
)

type filesDBService struct {
	CfgSvc config.IService

	mu sync.Mutex
}

func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesDBService) NewError(err interface{}) error {
	entry := map[string]interface{}{
		"time":  time.Now().Format(time.RFC3339),
		"error": fmt.Sprintf("%v", err),
	}
	if cerr, ok := err.(model.CustomError); ok {
		entry["processor"] = cerr.Processor
		entry["message"] = cerr.Message
		if cerr.Inner != nil {
			entry["error"] = cerr.Inner.Error()
		}
	}
	return svc.appendJSON("errors.jsonl", entry)
}

func (svc *filesDBService) NewAlerterStats(stats model.AlerterStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.appendJSON("stats.jsonl", stats)
}

func (svc *filesDBService) NewSourceStats(stats model.SourceStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.appendJSON("stats.jsonl", stats)
}

func (svc *filesDBService) NewDetectorStats(stats model.DetectorStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.appendJSON("stats.jsonl", stats)
}

func (svc *filesDBService) NewSessionStats(stats model.SessionStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.appendJSON("stats.jsonl", stats)
}

func (svc *filesDBService) NewAlertEvent(event model.AlertEvent) error {
	return svc.appendJSON("alerts.jsonl", event)
}

func (svc *filesDBService) appendJSON(name string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	folder := svc.CfgSvc.GetDataFolder()
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(folder, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(payload, '\n'))
	return err
}
