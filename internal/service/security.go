package service

import (
	"context"
	"encoding/json"

	"classforge/internal/entity"
	"classforge/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// logSecurity appends an audit row. Failures are logged and swallowed; the
// audit trail never blocks the operation it records.
func logSecurity(
	ctx context.Context,
	logs repository.SecurityLogRepository,
	logger *logrus.Logger,
	userID *uuid.UUID,
	ipAddress *string,
	action entity.SecurityAction,
	metadata map[string]any,
) {
	if logs == nil {
		return
	}
	var payload datatypes.JSON
	if metadata != nil {
		if bytes, err := json.Marshal(metadata); err == nil {
			payload = datatypes.JSON(bytes)
		}
	}
	err := logs.Log(ctx, &entity.SecurityLog{
		UserID:    userID,
		IPAddress: ipAddress,
		Action:    action,
		Metadata:  payload,
	})
	if err != nil && logger != nil {
		logger.WithError(err).Warn("security log write failed")
	}
}

// sendMail dispatches a campaign email and logs failures without surfacing
// them; outbound mail is fire-and-forget.
func sendMail(
	ctx context.Context,
	mailer Mailer,
	logger *logrus.Logger,
	campaignID int,
	to []string,
	cc []string,
	personalization map[string]string,
) {
	if mailer == nil {
		return
	}
	if err := mailer.Send(ctx, campaignID, to, cc, personalization); err != nil && logger != nil {
		logger.WithError(err).WithField("campaign", campaignID).Warn("mail dispatch failed")
	}
}
