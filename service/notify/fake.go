package notify

import (
	"github.com/firewatch/fd-go/model"
	"github.com/firewatch/fd-go/service/config"
)

type fakeService struct {
	CfgSvc config.IService
}

func NewFake(cfgsvc config.IService) IService {
	return &fakeService{
		CfgSvc: cfgsvc,
	}
}

func (svc *fakeService) Post(_ model.AlertEvent) error {
	return nil
}

func (svc *fakeService) Finalize() {
}
