package server

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/gst-bills/internal/common"
	"github.com/joseph-ayodele/gst-bills/internal/entity"
)

// BillsServiceName is the fully qualified gRPC service name.
const BillsServiceName = "gstbills.v1.BillsService"

// BillsServer is the gRPC surface. Every message is a google.protobuf.Struct whose
// fields mirror the JSON of the HTTP API.
type BillsServer interface {
	ExtractImage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExtractText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExtractVoice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EditRate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EditAmount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmBill(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBill(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBills(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteBill(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportBills(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(BillsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BillsServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + BillsServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BillsServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// BillsServiceDesc is the hand-written service descriptor for BillsServer.
var BillsServiceDesc = grpc.ServiceDesc{
	ServiceName: BillsServiceName,
	HandlerType: (*BillsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ExtractImage", BillsServer.ExtractImage),
		unary("ExtractText", BillsServer.ExtractText),
		unary("ExtractVoice", BillsServer.ExtractVoice),
		unary("EditRate", BillsServer.EditRate),
		unary("EditAmount", BillsServer.EditAmount),
		unary("ConfirmBill", BillsServer.ConfirmBill),
		unary("GetBill", BillsServer.GetBill),
		unary("ListBills", BillsServer.ListBills),
		unary("DeleteBill", BillsServer.DeleteBill),
		unary("ExportBills", BillsServer.ExportBills),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gstbills/v1/bills.proto",
}

func RegisterBillsServer(s grpc.ServiceRegistrar, srv BillsServer) {
	s.RegisterService(&BillsServiceDesc, srv)
}

// NewGRPCServer builds a gRPC server with the bills, health and reflection services.
func NewGRPCServer(svc Bills, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	RegisterBillsServer(gs, NewBillsService(svc, logger))

	// Register gRPC health service
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	// Set the service as serving (empty string means overall server health)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(BillsServiceName, healthpb.HealthCheckResponse_SERVING)
	// Reflection for grpcurl
	reflection.Register(gs)
	return gs, hs
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		rid := uuid.New().String()
		start := time.Now()
		ctx = common.WithRequestID(ctx, rid)
		resp, err := handler(ctx, req)
		attrs := []any{
			"req_id", rid,
			"method", info.FullMethod,
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			logger.Warn("grpc.request.failed", append(attrs, "error", err)...)
		} else {
			logger.Info("grpc.request.ok", attrs...)
		}
		return resp, err
	}
}

// BillsService implements BillsServer over the application façade.
type BillsService struct {
	svc    Bills
	logger *slog.Logger
}

func NewBillsService(svc Bills, logger *slog.Logger) *BillsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillsService{svc: svc, logger: logger}
}

func (s *BillsService) respond(v any, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := toStruct(v)
	if err != nil {
		s.logger.Error("grpc.encode.failed", "error", err)
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return out, nil
}

func (s *BillsService) ExtractImage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	source, ok := parseSource(stringField(in, "source"))
	if !ok {
		return nil, common.InvalidArgumentError("source must be image or camera")
	}
	image, err := base64.StdEncoding.DecodeString(stringField(in, "image"))
	if err != nil || len(image) == 0 {
		return nil, common.InvalidArgumentError("image must be non-empty base64")
	}
	return s.respond(s.svc.ExtractImage(ctx, image, source))
}

func (s *BillsService) ExtractText(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	source, ok := parseSource(stringField(in, "source"))
	if !ok {
		return nil, common.InvalidArgumentErrorf("unknown source %q", stringField(in, "source"))
	}
	return s.respond(s.svc.ExtractText(ctx, stringField(in, "text"), source))
}

func (s *BillsService) ExtractVoice(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.respond(s.svc.ExtractVoice(ctx, stringField(in, "transcript")))
}

func (s *BillsService) EditRate(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var rec entity.InvoiceRecord
	if err := decodeField(in, "record", &rec); err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	return s.respond(s.svc.EditRate(rec, stringField(in, "rate")))
}

func (s *BillsService) EditAmount(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var rec entity.InvoiceRecord
	if err := decodeField(in, "record", &rec); err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	return s.respond(s.svc.EditAmount(rec, stringField(in, "amount")))
}

func (s *BillsService) ConfirmBill(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var rec entity.InvoiceRecord
	if err := decodeField(in, "record", &rec); err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	source, ok := parseSource(stringField(in, "source"))
	if !ok {
		return nil, common.InvalidArgumentErrorf("unknown source %q", stringField(in, "source"))
	}
	return s.respond(s.svc.Confirm(ctx, rec, source))
}

func (s *BillsService) GetBill(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuid.Parse(strings.TrimSpace(stringField(in, "id")))
	if err != nil {
		return nil, common.InvalidArgumentError("id must be a UUID")
	}
	return s.respond(s.svc.Get(ctx, id))
}

func (s *BillsService) ListBills(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	from, to, err := dateWindow(stringField(in, "fromDate"), stringField(in, "toDate"))
	if err != nil {
		return nil, err
	}
	list, err := s.svc.List(ctx, from, to)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.respond(map[string]any{"bills": nonNil(list)}, nil)
}

func (s *BillsService) DeleteBill(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := uuid.Parse(strings.TrimSpace(stringField(in, "id")))
	if err != nil {
		return nil, common.InvalidArgumentError("id must be a UUID")
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		return nil, toStatus(err)
	}
	return s.respond(map[string]any{"id": id.String(), "deleted": true}, nil)
}

func (s *BillsService) ExportBills(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	from, to, err := dateWindow(stringField(in, "fromDate"), stringField(in, "toDate"))
	if err != nil {
		return nil, err
	}
	xlsx, err := s.svc.Export(ctx, from, to)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "error", err)
		return nil, toStatus(err)
	}
	return s.respond(map[string]any{
		"filename": exportFilename(from, to),
		"xlsx":     base64.StdEncoding.EncodeToString(xlsx),
	}, nil)
}

func dateWindow(fromStr, toStr string) (*time.Time, *time.Time, error) {
	from, err := parseDate(strings.TrimSpace(fromStr))
	if err != nil {
		return nil, nil, common.InvalidArgumentError("fromDate must be YYYY-MM-DD")
	}
	to, err := parseDate(strings.TrimSpace(toStr))
	if err != nil {
		return nil, nil, common.InvalidArgumentError("toDate must be YYYY-MM-DD")
	}
	return from, to, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
