package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
)

// NewEntityAppliers wires the review workflow to the entity services. Each
// applier decodes the stored payload into the matching request type and
// replays it as the reviewer.
func NewEntityAppliers(
	people *PersonService,
	organizations *OrganizationService,
	positions *PositionService,
	directives *DirectiveService,
	occupations *OccupationService,
) map[models.TargetEntity]ChangeApplier {
	return map[models.TargetEntity]ChangeApplier{
		models.TargetPerson: ChangeApplierFunc(func(ctx context.Context, request *models.ChangeRequest, actorID string) error {
			switch request.Operation {
			case models.OperationCreate:
				var req dto.CreatePersonRequest
				if err := decodePayload(request.Payload, &req); err != nil {
					return err
				}
				_, err := people.Create(ctx, req, actorID)
				return err
			case models.OperationUpdate:
				var req dto.UpdatePersonRequest
				if err := decodePayload(request.Payload, &req); err != nil {
					return err
				}
				_, err := people.Update(ctx, *request.TargetID, req, actorID)
				return err
			case models.OperationDelete:
				return people.Delete(ctx, *request.TargetID, actorID)
			}
			return unsupportedOperation(request)
		}),
		models.TargetOrganization: ChangeApplierFunc(func(ctx context.Context, request *models.ChangeRequest, actorID string) error {
			switch request.Operation {
			case models.OperationCreate:
				var req dto.CreateOrganizationRequest
				if err := decodePayload(request.Payload, &req); err != nil {
					return err
				}
				_, err := organizations.Create(ctx, req, actorID)
				return err
			case models.OperationUpdate:
				var req dto.UpdateOrganizationRequest
				if err := decodePayload(request.Payload, &req); err != nil {
					return err
				}
				_, err := organizations.Update(ctx, *request.TargetID, req, actorID)
				return err
			case models.OperationDelete:
				return organizations.Delete(ctx, *request.TargetID, actorID)
			}
			return unsupportedOperation(request)
		}),
		models.TargetPosition: ChangeApplierFunc(func(ctx context.Context, request *models.ChangeRequest, actorID string) error {
			switch request.Operation {
			case models.OperationCreate:
				var req dto.CreatePositionRequest
				if err := decodePayload(request.Payload, &req); err != nil {
					return err
				}
				_, err := positions.Create(ctx, req, actorID)
				return err
			case models.OperationUpdate:
				var req dto.UpdatePositionRequest
				if err := decodePayload(request.Payload, &req); err != nil {
					return err
				}
				_, err := positions.Update(ctx, *request.TargetID, req, actorID)
				return err
			case models.OperationDelete:
				return positions.Delete(ctx, *request.TargetID, actorID)
			}
			return unsupportedOperation(request)
		}),
		models.TargetDirective: ChangeApplierFunc(func(ctx context.Context, request *models.ChangeRequest, actorID string) error {
			switch request.Operation {
			case models.OperationCreate:
				var req dto.CreateDirectiveRequest
				if err := decodePayload(request.Payload, &req); err != nil {
					return err
				}
				_, err := directives.Create(ctx, req, actorID)
				return err
			case models.OperationUpdate:
				var req dto.UpdateDirectiveRequest
				if err := decodePayload(request.Payload, &req); err != nil {
					return err
				}
				_, err := directives.Update(ctx, *request.TargetID, req, actorID)
				return err
			case models.OperationDelete:
				return directives.Delete(ctx, *request.TargetID, actorID)
			}
			return unsupportedOperation(request)
		}),
		models.TargetOccupation: ChangeApplierFunc(func(ctx context.Context, request *models.ChangeRequest, actorID string) error {
			switch request.Operation {
			case models.OperationCreate:
				var req dto.CreateOccupationRequest
				if err := decodePayload(request.Payload, &req); err != nil {
					return err
				}
				_, err := occupations.Create(ctx, req, actorID)
				return err
			case models.OperationUpdate:
				var req dto.UpdateOccupationRequest
				if err := decodePayload(request.Payload, &req); err != nil {
					return err
				}
				_, err := occupations.Update(ctx, *request.TargetID, req, actorID)
				return err
			case models.OperationDelete:
				return occupations.Delete(ctx, *request.TargetID, actorID)
			}
			return unsupportedOperation(request)
		}),
	}
}

func decodePayload(payload json.RawMessage, dest interface{}) error {
	if err := json.Unmarshal(payload, dest); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("malformed payload: %v", err))
	}
	return nil
}

func unsupportedOperation(request *models.ChangeRequest) error {
	return appErrors.Clone(appErrors.ErrValidation,
		fmt.Sprintf("unsupported operation %s for entity %s", request.Operation, request.Entity))
}
