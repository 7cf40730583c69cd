package handler

import (
	"context"
	"errors"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/flavorhutt/internal/core/domain"
	"github.com/rl1809/flavorhutt/internal/core/service"
)

const (
	purchaseServiceName  = "flavorhutt.v1.PurchaseService"
	recordPurchaseMethod = "/" + purchaseServiceName + "/RecordPurchase"
)

// PurchaseServer carries purchase requests over gRPC. Messages are
// google.protobuf.Struct values with the same fields as the JSON API.
type PurchaseServer interface {
	RecordPurchase(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var PurchaseServiceDesc = grpc.ServiceDesc{
	ServiceName: purchaseServiceName,
	HandlerType: (*PurchaseServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RecordPurchase",
			Handler:    recordPurchaseHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flavorhutt/v1/purchase.proto",
}

func RegisterPurchaseServer(s grpc.ServiceRegistrar, srv PurchaseServer) {
	s.RegisterService(&PurchaseServiceDesc, srv)
}

func recordPurchaseHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PurchaseServer).RecordPurchase(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: recordPurchaseMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PurchaseServer).RecordPurchase(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type GRPCHandler struct {
	purchases *service.PurchaseService
}

func NewGRPCHandler(purchases *service.PurchaseService) *GRPCHandler {
	return &GRPCHandler{purchases: purchases}
}

func (h *GRPCHandler) RecordPurchase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	quantity := fields["quantity"].GetNumberValue()
	if quantity != float64(int64(quantity)) {
		return nil, status.Error(codes.InvalidArgument, "quantity must be a whole number")
	}

	result, err := h.purchases.RecordPurchase(ctx, domain.PurchaseRequest{
		Food:       fields["food"].GetStringValue(),
		Quantity:   int64(quantity),
		BuyerEmail: fields["buyerEmail"].GetStringValue(),
		RequestID:  fields["requestId"].GetStringValue(),
	})
	if err != nil {
		return nil, grpcError(err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"acknowledged":  result.Acknowledged,
		"matchedCount":  result.MatchedCount,
		"modifiedCount": result.ModifiedCount,
		"upsertedCount": result.UpsertedCount,
	})
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		return status.Error(codes.NotFound, "Item not found")
	case errors.Is(err, service.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrCounterOverflow):
		return status.Error(codes.InvalidArgument, "quantity out of range")
	case errors.Is(err, service.ErrInsufficientStock):
		return status.Error(codes.FailedPrecondition, "Insufficient stock")
	case errors.Is(err, service.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, "duplicate request")
	default:
		log.Printf("grpc %s: %v", recordPurchaseMethod, err)
		return status.Error(codes.Internal, "internal error")
	}
}

// PurchaseClient calls a remote PurchaseService.
type PurchaseClient struct {
	cc grpc.ClientConnInterface
}

func NewPurchaseClient(cc grpc.ClientConnInterface) *PurchaseClient {
	return &PurchaseClient{cc: cc}
}

func (c *PurchaseClient) RecordPurchase(ctx context.Context, req domain.PurchaseRequest, opts ...grpc.CallOption) (domain.UpdateResult, error) {
	in, err := structpb.NewStruct(map[string]interface{}{
		"food":       req.Food,
		"quantity":   req.Quantity,
		"buyerEmail": req.BuyerEmail,
		"requestId":  req.RequestID,
	})
	if err != nil {
		return domain.UpdateResult{}, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, recordPurchaseMethod, in, out, opts...); err != nil {
		return domain.UpdateResult{}, err
	}

	f := out.GetFields()
	return domain.UpdateResult{
		Acknowledged:  f["acknowledged"].GetBoolValue(),
		MatchedCount:  int64(f["matchedCount"].GetNumberValue()),
		ModifiedCount: int64(f["modifiedCount"].GetNumberValue()),
		UpsertedCount: int64(f["upsertedCount"].GetNumberValue()),
	}, nil
}
