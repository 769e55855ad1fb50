package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/logitrack/internal/adapter/auth"
	"github.com/rl1809/logitrack/internal/core/domain"
	"github.com/rl1809/logitrack/internal/core/service"
	"github.com/rl1809/logitrack/internal/port"
)

const (
	WarehouseServiceName = "warehouse.v1.Warehouse"

	// JSONContentSubtype selects the JSON codec: clients pass
	// grpc.CallContentSubtype(JSONContentSubtype).
	JSONContentSubtype = "json"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec lets the service run without generated protobuf types.
type jsonCodec struct{}

func (jsonCodec) Name() string                       { return JSONContentSubtype }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type ListInventoryRequest struct{}

type ListInventoryResponse struct {
	Items []domain.InventoryItem `json:"items"`
}

type IDRequest struct {
	ID int64 `json:"id"`
}

type DeleteResponse struct{}

type ListOrdersRequest struct{}

type ListOrdersResponse struct {
	Orders []domain.OrderView `json:"orders"`
}

// WarehouseServer is the server API of warehouse.v1.Warehouse.
type WarehouseServer interface {
	ListInventory(context.Context, *ListInventoryRequest) (*ListInventoryResponse, error)
	CreateInventoryItem(context.Context, *service.InventoryInput) (*domain.InventoryItem, error)
	DeleteInventoryItem(context.Context, *IDRequest) (*DeleteResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
	GetOrder(context.Context, *IDRequest) (*domain.OrderView, error)
	CreateOrder(context.Context, *service.OrderInput) (*domain.OrderView, error)
	DeleteOrder(context.Context, *IDRequest) (*DeleteResponse, error)
}

var _ WarehouseServer = (*GRPCHandler)(nil)

// managerMethods require the Manager role.
var managerMethods = map[string]bool{
	"/" + WarehouseServiceName + "/CreateOrder": true,
	"/" + WarehouseServiceName + "/DeleteOrder": true,
}

var warehouseServiceDesc = grpc.ServiceDesc{
	ServiceName: WarehouseServiceName,
	HandlerType: (*WarehouseServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListInventory", WarehouseServer.ListInventory),
		unary("CreateInventoryItem", WarehouseServer.CreateInventoryItem),
		unary("DeleteInventoryItem", WarehouseServer.DeleteInventoryItem),
		unary("ListOrders", WarehouseServer.ListOrders),
		unary("GetOrder", WarehouseServer.GetOrder),
		unary("CreateOrder", WarehouseServer.CreateOrder),
		unary("DeleteOrder", WarehouseServer.DeleteOrder),
	},
	Streams: []grpc.StreamDesc{},
}

func unary[Req, Resp any](name string, call func(WarehouseServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(WarehouseServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + WarehouseServiceName + "/" + name,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(WarehouseServer), ctx, req.(*Req))
			})
		},
	}
}

type GRPCHandler struct {
	inventory *service.InventoryService
	orders    *service.OrderService
	auth      port.Authenticator
	log       *zap.Logger
}

func NewGRPCHandler(
	inventory *service.InventoryService,
	orders *service.OrderService,
	authenticator port.Authenticator,
	log *zap.Logger,
) *GRPCHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &GRPCHandler{
		inventory: inventory,
		orders:    orders,
		auth:      authenticator,
		log:       log.Named("grpc"),
	}
}

// NewGRPCServer builds a server with the warehouse and health services
// registered and the auth interceptor installed.
func NewGRPCServer(h *GRPCHandler, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append(opts, grpc.ChainUnaryInterceptor(h.authInterceptor))
	s := grpc.NewServer(opts...)
	s.RegisterService(&warehouseServiceDesc, h)

	hs := health.NewServer()
	hs.SetServingStatus(WarehouseServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}

func (h *GRPCHandler) ListInventory(ctx context.Context, _ *ListInventoryRequest) (*ListInventoryResponse, error) {
	items, err := h.inventory.GetInventoryList(ctx)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &ListInventoryResponse{Items: items}, nil
}

func (h *GRPCHandler) CreateInventoryItem(ctx context.Context, req *service.InventoryInput) (*domain.InventoryItem, error) {
	item, err := h.inventory.CreateInventoryItem(ctx, *req)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &item, nil
}

func (h *GRPCHandler) DeleteInventoryItem(ctx context.Context, req *IDRequest) (*DeleteResponse, error) {
	if req.ID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id must be a positive integer")
	}
	if err := h.inventory.DeleteInventoryItem(ctx, req.ID); err != nil {
		return nil, h.toStatus(err)
	}
	return &DeleteResponse{}, nil
}

func (h *GRPCHandler) ListOrders(ctx context.Context, _ *ListOrdersRequest) (*ListOrdersResponse, error) {
	orders, err := h.orders.GetOrderList(ctx)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &ListOrdersResponse{Orders: orders}, nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *IDRequest) (*domain.OrderView, error) {
	if req.ID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id must be a positive integer")
	}
	order, err := h.orders.GetOrderByID(ctx, req.ID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &order, nil
}

func (h *GRPCHandler) CreateOrder(ctx context.Context, req *service.OrderInput) (*domain.OrderView, error) {
	order, err := h.orders.CreateOrder(ctx, *req)
	if err != nil {
		return nil, h.toStatus(err)
	}
	p, _ := PrincipalFrom(ctx)
	h.log.Info("order.create", zap.String("subject", p.Subject), zap.Int64("id", order.OrderID))
	return &order, nil
}

func (h *GRPCHandler) DeleteOrder(ctx context.Context, req *IDRequest) (*DeleteResponse, error) {
	if req.ID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id must be a positive integer")
	}
	if err := h.orders.DeleteOrder(ctx, req.ID); err != nil {
		return nil, h.toStatus(err)
	}
	p, _ := PrincipalFrom(ctx)
	h.log.Info("order.delete", zap.String("subject", p.Subject), zap.Int64("id", req.ID))
	return &DeleteResponse{}, nil
}

// authInterceptor guards the warehouse service only; health checks pass
// through unauthenticated.
func (h *GRPCHandler) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	if !strings.HasPrefix(info.FullMethod, "/"+WarehouseServiceName+"/") {
		return next(ctx, req)
	}

	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("authorization"); len(vals) > 0 {
			token = auth.BearerToken(vals[0])
		}
	}

	p, err := h.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	if managerMethods[info.FullMethod] && !p.HasRole(domain.RoleManager) {
		return nil, status.Error(codes.PermissionDenied, "requires role "+domain.RoleManager)
	}
	return next(WithPrincipal(ctx, p), req)
}

func (h *GRPCHandler) toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrTransient):
		h.log.Error("request failed", zap.Error(err))
		return status.Error(codes.Unavailable, "temporary storage failure")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}
