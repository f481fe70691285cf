package data

import "github.com/firewatch/fd-go/model"

type fakeService struct {
}

func NewFake() IService {
	return &fakeService{}
}

func (svc *fakeService) NewError(_ interface{}) error {
	return nil
}

func (svc *fakeService) NewAlerterStats(_ model.AlerterStats) error {
	return nil
}

func (svc *fakeService) NewSourceStats(_ model.SourceStats) error {
	return nil
}

func (svc *fakeService) NewDetectorStats(_ model.DetectorStats) error {
	return nil
}

func (svc *fakeService) NewSessionStats(_ model.SessionStats) error {
	return nil
}

func (svc *fakeService) NewAlertEvent(_ model.AlertEvent) error {
	return nil
}
